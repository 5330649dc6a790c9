package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(body))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	return m
}

func fieldsOf(err error) []string {
	var verr *Error
	if !errors.As(err, &verr) {
		return nil
	}
	out := make([]string, len(verr.Violations))
	for i, v := range verr.Violations {
		out[i] = v.Field
	}
	return out
}

func TestValidate_CreateValid(t *testing.T) {
	engine := New()

	payload, err := engine.Validate(KindCreate, decode(t, `{
		"owner_id": "u1",
		"title": "Dune",
		"current_page": 0,
		"total_pages": 412,
		"review": "not allowed on create",
		"finished": true,
		"cover_url": "https://example.com/x.jpg"
	}`))
	require.NoError(t, err)

	assert.Equal(t, Payload{
		"owner_id":     "u1",
		"title":        "Dune",
		"current_page": 0,
		"total_pages":  412,
	}, payload)
}

func TestValidate_RequiredFields(t *testing.T) {
	engine := New()

	t.Run("create", func(t *testing.T) {
		_, err := engine.Validate(KindCreate, map[string]any{"title": "Dune"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidationFailed))
		assert.Equal(t, []string{"current_page", "owner_id", "total_pages"}, fieldsOf(err))
	})

	t.Run("update only needs the natural key", func(t *testing.T) {
		payload, err := engine.Validate(KindUpdate, map[string]any{"owner_id": "u1", "title": "Dune"})
		require.NoError(t, err)
		assert.Len(t, payload, 2)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := engine.Validate(KindDelete, map[string]any{"id": 7})
		require.Error(t, err)
		assert.Equal(t, []string{"owner_id", "title"}, fieldsOf(err))
	})

	t.Run("explicit null counts as missing", func(t *testing.T) {
		_, err := engine.Validate(KindUpdate, decode(t, `{"owner_id": "u1", "title": null}`))
		assert.Equal(t, []string{"title"}, fieldsOf(err))
	})
}

func TestValidate_Types(t *testing.T) {
	engine := New()

	tests := []struct {
		name    string
		body    string
		field   string
		message string
	}{
		{"page as string", `{"owner_id":"u1","title":"Dune","current_page":"10"}`, "current_page", "current_page must be an integer"},
		{"fractional page", `{"owner_id":"u1","title":"Dune","current_page":10.5}`, "current_page", "current_page must be an integer"},
		{"finished as string", `{"owner_id":"u1","title":"Dune","finished":"yes"}`, "finished", "finished must be a boolean"},
		{"title as number", `{"owner_id":"u1","title":42}`, "title", "title must be a string"},
		{"negative page", `{"owner_id":"u1","title":"Dune","total_pages":-1}`, "total_pages", "total_pages must be at least 0"},
		{"empty owner", `{"owner_id":"","title":"Dune"}`, "owner_id", "owner_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Validate(KindUpdate, decode(t, tt.body))
			var verr *Error
			require.True(t, errors.As(err, &verr))
			require.Len(t, verr.Violations, 1)
			assert.Equal(t, tt.field, verr.Violations[0].Field)
			assert.Equal(t, tt.message, verr.Violations[0].Message)
		})
	}
}

func TestValidate_IntegralNumberForms(t *testing.T) {
	engine := New()

	for _, raw := range []string{"412", "412.0", "4.12e2", "4120e-1"} {
		t.Run(raw, func(t *testing.T) {
			payload, err := engine.Validate(KindCreate, decode(t, `{"owner_id":"u1","title":"Dune","current_page":0,"total_pages":`+raw+`}`))
			require.NoError(t, err)
			total, ok := payload.Int("total_pages")
			assert.True(t, ok)
			assert.Equal(t, 412, total)
		})
	}

	for _, raw := range []string{"4.125e2", "1e400"} {
		t.Run(raw, func(t *testing.T) {
			_, err := engine.Validate(KindCreate, decode(t, `{"owner_id":"u1","title":"Dune","current_page":0,"total_pages":`+raw+`}`))
			assert.Equal(t, []string{"total_pages"}, fieldsOf(err))
		})
	}
}

func TestValidate_OwnerIDLength(t *testing.T) {
	engine := New()

	_, err := engine.Validate(KindCreate, map[string]any{
		"owner_id":     strings.Repeat("a", 128),
		"title":        "Dune",
		"current_page": 0,
		"total_pages":  412,
	})
	assert.NoError(t, err)

	_, err = engine.Validate(KindCreate, map[string]any{
		"owner_id":     strings.Repeat("a", 129),
		"title":        "Dune",
		"current_page": 0,
		"total_pages":  412,
	})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "owner_id must be at most 128 characters", verr.Violations[0].Message)
}

func TestValidate_DeleteID(t *testing.T) {
	engine := New()

	t.Run("numeric string", func(t *testing.T) {
		payload, err := engine.Validate(KindDelete, map[string]any{"owner_id": "u1", "title": "Dune", "id": "12"})
		require.NoError(t, err)
		id, ok := payload.Int64("id")
		assert.True(t, ok)
		assert.Equal(t, int64(12), id)
	})

	t.Run("json number", func(t *testing.T) {
		payload, err := engine.Validate(KindDelete, decode(t, `{"owner_id":"u1","title":"Dune","id":12}`))
		require.NoError(t, err)
		id, _ := payload.Int64("id")
		assert.Equal(t, int64(12), id)
	})

	t.Run("not a number", func(t *testing.T) {
		_, err := engine.Validate(KindDelete, map[string]any{"owner_id": "u1", "title": "Dune", "id": "abc"})
		assert.Equal(t, []string{"id"}, fieldsOf(err))
	})

	t.Run("zero", func(t *testing.T) {
		_, err := engine.Validate(KindDelete, map[string]any{"owner_id": "u1", "title": "Dune", "id": 0})
		assert.Equal(t, []string{"id"}, fieldsOf(err))
	})
}

func TestValidate_DateTime(t *testing.T) {
	engine := NewEngine(map[Kind]Schema{
		"import": {
			Name:     "book.import",
			Fields:   pick(BookProperties(), "created_at", "updated_at", "inactive_at"),
			Required: []string{"created_at"},
		},
	})

	payload, err := engine.Validate("import", map[string]any{"created_at": "2023-05-01T20:23:20Z"})
	require.NoError(t, err)
	ts, ok := payload.Time("created_at")
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2023, 5, 1, 20, 23, 20, 0, time.UTC)))

	_, err = engine.Validate("import", map[string]any{"created_at": "2023-05-01 20:23:20"})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "created_at must be an ISO-8601 date-time string", verr.Violations[0].Message)
}

func TestDefaultSchemas_PickFromBookProperties(t *testing.T) {
	props := BookProperties()
	for kind, schema := range DefaultSchemas() {
		for name, field := range schema.Fields {
			assert.Equal(t, props[name], field, "%s.%s", kind, name)
		}
		for _, name := range schema.Required {
			assert.Contains(t, schema.Fields, name, "%s requires undeclared %s", kind, name)
		}
	}
	for _, ts := range []string{"created_at", "updated_at", "inactive_at"} {
		assert.Equal(t, TypeDateTime, props[ts].Type)
	}
}

func TestValidate_UnknownKind(t *testing.T) {
	_, err := New().Validate("archive", map[string]any{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrValidationFailed))
}

func TestError_Message(t *testing.T) {
	err := &Error{Schema: "book.create", Violations: []Violation{
		{Field: "owner_id", Message: "owner_id is required"},
		{Field: "title", Message: "title is required"},
	}}
	assert.Equal(t, "book.create: owner_id is required; title is required", err.Error())
}

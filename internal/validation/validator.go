package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrValidationFailed is matched by every *Error.
var ErrValidationFailed = errors.New("validation failed")

// Violation is one broken constraint.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error carries all violations found in one payload.
type Error struct {
	Schema     string
	Violations []Violation
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Message
	}
	return fmt.Sprintf("%s: %s", e.Schema, strings.Join(parts, "; "))
}

func (e *Error) Unwrap() error { return ErrValidationFailed }

// Engine validates mutation payloads against static schemas.
type Engine struct {
	validate *validator.Validate
	schemas  map[Kind]Schema
}

func NewEngine(schemas map[Kind]Schema) *Engine {
	return &Engine{validate: validator.New(), schemas: schemas}
}

// New returns an engine loaded with DefaultSchemas.
func New() *Engine {
	return NewEngine(DefaultSchemas())
}

// Validate returns a payload holding only the declared fields of the kind's schema, with
// integers normalized to int, ids to int64 and timestamps to time.Time.
func (e *Engine) Validate(kind Kind, payload map[string]any) (Payload, error) {
	schema, ok := e.schemas[kind]
	if !ok {
		return nil, fmt.Errorf("validation: unknown schema kind %q", kind)
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Payload, len(names))
	var violations []Violation
	for _, name := range names {
		field := schema.Fields[name]
		raw, present := payload[name]
		if !present || raw == nil {
			if required[name] {
				violations = append(violations, Violation{Field: name, Message: name + " is required"})
			}
			continue
		}

		value, ok := coerce(field.Type, raw)
		if !ok {
			violations = append(violations, Violation{Field: name, Message: fmt.Sprintf("%s must be %s", name, field.Type)})
			continue
		}

		if field.Rule != "" {
			if err := e.validate.Var(value, field.Rule); err != nil {
				violations = append(violations, describe(name, err)...)
				continue
			}
		}

		if field.Type == TypeDateTime {
			ts, err := time.Parse(time.RFC3339, value.(string))
			if err != nil {
				violations = append(violations, Violation{Field: name, Message: fmt.Sprintf("%s must be %s", name, field.Type)})
				continue
			}
			value = ts
		}
		out[name] = value
	}

	if len(violations) > 0 {
		return nil, &Error{Schema: schema.Name, Violations: violations}
	}
	return out, nil
}

func coerce(t FieldType, raw any) (any, bool) {
	switch t {
	case TypeString, TypeDateTime:
		s, ok := raw.(string)
		return s, ok
	case TypeBoolean:
		b, ok := raw.(bool)
		return b, ok
	case TypeInteger:
		n, ok := toInt64(raw)
		if !ok || n > math.MaxInt32 || n < math.MinInt32 {
			return nil, false
		}
		return int(n), true
	case TypeID:
		if s, ok := raw.(string); ok {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, false
			}
			return n, true
		}
		return toInt64(raw)
	}
	return nil, false
}

func toInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		// 4.12e2 and 412.0 are integers too.
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(v)
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func describe(name string, err error) []Violation {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{{Field: name, Message: fmt.Sprintf("%s is invalid", name)}}
	}

	out := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		param := fe.Param()
		isString := fe.Kind() == reflect.String

		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", name)
		case "max", "lte":
			if isString {
				message = fmt.Sprintf("%s must be at most %s characters", name, param)
			} else {
				message = fmt.Sprintf("%s must be at most %s", name, param)
			}
		case "min", "gte":
			if isString {
				message = fmt.Sprintf("%s must be at least %s characters", name, param)
			} else {
				message = fmt.Sprintf("%s must be at least %s", name, param)
			}
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", name, param)
		case "datetime":
			message = fmt.Sprintf("%s must be %s", name, TypeDateTime)
		default:
			message = fmt.Sprintf("%s is invalid", name)
		}
		out = append(out, Violation{Field: name, Message: message})
	}
	return out
}

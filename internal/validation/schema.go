package validation

// Kind selects the schema a payload is checked against.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// FieldType is the JSON type a field must carry before its rule is evaluated.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInteger
	TypeBoolean
	TypeDateTime
	// TypeID accepts an integer or a string holding one.
	TypeID
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "a string"
	case TypeInteger, TypeID:
		return "an integer"
	case TypeBoolean:
		return "a boolean"
	case TypeDateTime:
		return "an ISO-8601 date-time string"
	default:
		return "valid"
	}
}

// Field is one declared property. Rule is a validator tag evaluated on the normalized value.
type Field struct {
	Type FieldType
	Rule string
}

// Schema lists the fields a payload may carry; anything else is dropped.
type Schema struct {
	Name     string
	Fields   map[string]Field
	Required []string
}

// DateTimeRule checks an RFC 3339 timestamp.
const DateTimeRule = "datetime=2006-01-02T15:04:05Z07:00"

// BookProperties is every property a book payload can declare. Kind schemas pick from it.
func BookProperties() map[string]Field {
	timestamp := Field{Type: TypeDateTime, Rule: DateTimeRule}
	return map[string]Field{
		"id":           {Type: TypeID, Rule: "gt=0"},
		"created_at":   timestamp,
		"updated_at":   timestamp,
		"inactive_at":  timestamp,
		"owner_id":     {Type: TypeString, Rule: "required,max=128"},
		"title":        {Type: TypeString, Rule: "required"},
		"current_page": {Type: TypeInteger, Rule: "gte=0"},
		"total_pages":  {Type: TypeInteger, Rule: "gte=0"},
		"author":       {Type: TypeString},
		"review":       {Type: TypeString},
		"finished":     {Type: TypeBoolean},
	}
}

func pick(props map[string]Field, names ...string) map[string]Field {
	out := make(map[string]Field, len(names))
	for _, n := range names {
		out[n] = props[n]
	}
	return out
}

// DefaultSchemas returns the book mutation schemas.
func DefaultSchemas() map[Kind]Schema {
	props := BookProperties()
	return map[Kind]Schema{
		KindCreate: {
			Name:     "book.create",
			Fields:   pick(props, "owner_id", "title", "current_page", "total_pages"),
			Required: []string{"owner_id", "title", "total_pages", "current_page"},
		},
		KindUpdate: {
			Name:     "book.update",
			Fields:   pick(props, "owner_id", "title", "current_page", "total_pages", "review", "finished"),
			Required: []string{"owner_id", "title"},
		},
		KindDelete: {
			Name:     "book.delete",
			Fields:   pick(props, "id", "owner_id", "title"),
			Required: []string{"owner_id", "title"},
		},
	}
}

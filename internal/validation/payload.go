package validation

import "time"

// Payload is the normalized output of Engine.Validate.
type Payload map[string]any

func (p Payload) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

func (p Payload) Int(key string) (int, bool) {
	v, ok := p[key].(int)
	return v, ok
}

func (p Payload) Int64(key string) (int64, bool) {
	v, ok := p[key].(int64)
	return v, ok
}

func (p Payload) Bool(key string) (bool, bool) {
	v, ok := p[key].(bool)
	return v, ok
}

func (p Payload) Time(key string) (time.Time, bool) {
	v, ok := p[key].(time.Time)
	return v, ok
}

// StringPtr returns nil when key is absent.
func (p Payload) StringPtr(key string) *string {
	if v, ok := p.String(key); ok {
		return &v
	}
	return nil
}

// IntPtr returns nil when key is absent.
func (p Payload) IntPtr(key string) *int {
	if v, ok := p.Int(key); ok {
		return &v
	}
	return nil
}

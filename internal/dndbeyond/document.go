package dndbeyond

import "strconv"

// Document is a decoded JSON tree fetched from the character service. The
// service publishes no schema and the shape varies by character build, so
// every read goes through the absent-safe accessors below instead of direct
// type assertions.
type Document map[string]any

// docOf converts an arbitrary decoded JSON value to a Document.
//
// Postcondition: returns nil when v is not a JSON object.
func docOf(v any) Document {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return Document(m)
}

// Map returns the object stored under key, or nil when the key is absent,
// null, or holds a non-object value. Safe to call on a nil Document.
func (d Document) Map(key string) Document {
	if d == nil {
		return nil
	}
	return docOf(d[key])
}

// Slice returns the array stored under key, or nil when absent or not an array.
func (d Document) Slice(key string) []any {
	if d == nil {
		return nil
	}
	s, ok := d[key].([]any)
	if !ok {
		return nil
	}
	return s
}

// Str returns the string stored under key. Numbers are rendered decimally,
// since the source wobbles between numeric and string encodings for some
// fields (page numbers, durations). Anything else yields def.
func (d Document) Str(key, def string) string {
	if d == nil {
		return def
	}
	switch v := d[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return def
	}
}

// Int returns the integer stored under key, accepting JSON numbers and
// numeric strings. Anything else yields def.
func (d Document) Int(key string, def int) int {
	if d == nil {
		return def
	}
	switch v := d[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		return def
	default:
		return def
	}
}

// Bool returns the boolean stored under key, or def when absent or not a boolean.
func (d Document) Bool(key string, def bool) bool {
	if d == nil {
		return def
	}
	b, ok := d[key].(bool)
	if !ok {
		return def
	}
	return b
}

package spa

// RawTelemetry is the attribute map returned by the vendor cloud for one
// status poll. Keys and value domains are model-specific; values arrive
// as JSON numbers, strings, or integer flags. A RawTelemetry is valid
// for a single reconciliation cycle and is never mutated.
type RawTelemetry map[string]interface{}

// Int returns the attribute as an integer. JSON decoding delivers
// numbers as float64, so both forms are accepted.
func (r RawTelemetry) Int(key string) (int, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// Float returns the attribute as a float64.
func (r RawTelemetry) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// String returns the attribute as a string.
func (r RawTelemetry) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Has reports whether the attribute is present at all, regardless of type.
func (r RawTelemetry) Has(key string) bool {
	_, ok := r[key]
	return ok
}

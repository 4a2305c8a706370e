package bot

import "time"

// Params are the raw parameters of one service definition, as decoded from
// the configuration file. Accessors tolerate the loose typing YAML
// produces (ints vs floats, []any lists).
type Params map[string]any

// String returns the string parameter at key, or "".
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// StringOr returns the string parameter at key, or def when absent/empty.
func (p Params) StringOr(key, def string) string {
	if s := p.String(key); s != "" {
		return s
	}
	return def
}

// Int returns the integer parameter at key, or 0.
func (p Params) Int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// IntOr returns the integer parameter at key, or def when absent/zero.
func (p Params) IntOr(key string, def int) int {
	if n := p.Int(key); n != 0 {
		return n
	}
	return def
}

// Float returns the float parameter at key, or 0.
func (p Params) Float(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns the boolean parameter at key, or false.
func (p Params) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// StringSlice returns the list parameter at key as strings, skipping
// non-string members.
func (p Params) StringSlice(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// DurationOr parses the parameter at key as a Go duration string, falling
// back to def on absence or parse failure.
func (p Params) DurationOr(key string, def time.Duration) time.Duration {
	s := p.String(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

package tools

// Argument accessors for validated argument maps. Numbers decode from JSON as
// float64 while declared defaults may be Go ints, so both are accepted.

func String(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func Float(args map[string]any, name string) (float64, bool) {
	switch v := args[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func Int(args map[string]any, name string) (int, bool) {
	f, ok := Float(args, name)
	return int(f), ok
}

func Bool(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}

// Strings returns the string elements of an array argument.
func Strings(args map[string]any, name string) []string {
	switch v := args[name].(type) {
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

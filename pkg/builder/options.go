package builder

import "fmt"

func optString(opts map[string]interface{}, key, def string) string {
	v, ok := opts[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}

func optInt(opts map[string]interface{}, key string, def int) int {
	v, ok := opts[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

func optHas(opts map[string]interface{}, key string) bool {
	_, ok := opts[key]
	return ok
}

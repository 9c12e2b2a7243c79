package entity

// DeepCopy copies mappings and sequences recursively. Scalars are returned
// as-is.
func DeepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return CopyMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = DeepCopy(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = CopyMap(item)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out
	default:
		return value
	}
}

func CopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = DeepCopy(value)
	}
	return out
}

// Merge layers over on top of base and returns a new mapping. Nested
// mappings merge key by key; any other value in over replaces the one in
// base. Neither input is modified.
func Merge(base, over map[string]any) map[string]any {
	out := CopyMap(base)
	if out == nil {
		out = make(map[string]any, len(over))
	}
	for key, value := range over {
		overMap, overIsMap := value.(map[string]any)
		baseMap, baseIsMap := out[key].(map[string]any)
		if overIsMap && baseIsMap {
			out[key] = Merge(baseMap, overMap)
			continue
		}
		out[key] = DeepCopy(value)
	}
	return out
}

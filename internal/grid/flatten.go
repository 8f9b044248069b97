package grid

import "strings"

// Flatten turns an arbitrarily nested document into a flat field to scalar
// mapping, joining nested keys with ".". Nil leaves are dropped. Flattening
// an already flat mapping is the identity function.
func Flatten(doc map[string]any) map[string]any {
	result := make(map[string]any, len(doc))
	flattenInto(result, doc, "")
	return result
}

func flattenInto(result map[string]any, doc map[string]any, prefix string) {
	for key, value := range doc {
		newKey := key
		if prefix != "" {
			newKey = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenInto(result, nested, newKey)
			continue
		}
		if value == nil {
			continue
		}
		result[newKey] = value
	}
}

// FindNested resolves a dot-separated key path into a nested document and
// returns the value found there, if any.
func FindNested(doc map[string]any, dotPath string) (any, bool) {
	keys := strings.Split(dotPath, ".")
	var current any = doc
	for _, key := range keys {
		section, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = section[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

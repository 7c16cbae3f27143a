package innertube

import "github.com/ysmood/gson"

// Text resolves a display string from any of the text encodings YouTube
// uses interchangeably: a plain "simpleText" field, a "runs" array of
// styled fragments, or the view-model "content" field. The check order is
// fixed; a plain-text match is authoritative when several encodings are
// present. A node that is not text-bearing resolves to the empty string.
func Text(node gson.JSON) string {
	obj, ok := node.Val().(map[string]any)
	if !ok {
		return ""
	}

	if s, ok := obj["simpleText"].(string); ok {
		return s
	}

	if runs, ok := obj["runs"].([]any); ok {
		var out string
		for _, r := range runs {
			run, ok := r.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := run["text"].(string); ok {
				out += s
			}
		}
		return out
	}

	if s, ok := obj["content"].(string); ok {
		return s
	}

	return ""
}

// str returns the underlying string of a JSON value, or "" when the value
// is absent or not a string.
func str(j gson.JSON) string {
	s, _ := j.Val().(string)
	return s
}

// get resolves a path of keys and indexes inside j, yielding the nil JSON
// when any segment is missing.
func get(j gson.JSON, path ...any) gson.JSON {
	v, ok := j.Gets(path...)
	if !ok {
		return gson.New(nil)
	}
	return v
}

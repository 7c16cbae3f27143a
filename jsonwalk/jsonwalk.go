// Package jsonwalk provides a generic depth-first traversal over loosely
// typed JSON values. It is the substrate for locating item records and
// pagination tokens inside payloads whose shape is not known in advance.
package jsonwalk

import (
	"sort"

	"github.com/ysmood/gson"
)

// Visitor receives every (key, value) pair encountered during a walk.
// Returning false stops the walk immediately.
type Visitor func(key string, value gson.JSON) bool

// Walk performs a depth-first traversal of root, calling visit for every
// object field at any depth. Array elements are descended into but carry no
// key of their own. Object fields are visited in sorted key order so that
// two walks over the same value always yield the same sequence (Go maps do
// not preserve JSON document order).
//
// Walk is a pure function of its input: it holds no state between calls and
// may be invoked any number of times over the same value. Nodes that are
// neither objects nor arrays are leaves and are skipped silently.
func Walk(root gson.JSON, visit Visitor) {
	walkValue(root.Val(), visit)
}

// FindKey walks root and returns the value of the first field named key,
// in walk order. The second return is false when no such field exists.
func FindKey(root gson.JSON, key string) (gson.JSON, bool) {
	var found gson.JSON
	ok := false
	Walk(root, func(k string, v gson.JSON) bool {
		if k == key {
			found = v
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

func walkValue(v any, visit Visitor) bool {
	switch node := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := node[k]
			if !visit(k, gson.New(child)) {
				return false
			}
			if !walkValue(child, visit) {
				return false
			}
		}
	case []any:
		for _, child := range node {
			if !walkValue(child, visit) {
				return false
			}
		}
	}
	return true
}

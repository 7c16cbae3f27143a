package innertube

import (
	"github.com/use-agent/tubetap/jsonwalk"
	"github.com/ysmood/gson"
)

// Page is the result of extracting one JSON payload: the items found in
// walk order and the continuation token for the next page, empty when the
// payload carries none.
type Page struct {
	Items        []Item
	Continuation string
}

// ExtractPage harvests item records and the forward-pagination token from
// one payload. Records are discovered by walking the whole tree and
// filtering on recognized structural kinds, because their location varies
// across payload generations. The token may live in an unrelated branch,
// so it is harvested by an independent walk.
func ExtractPage(payload gson.JSON, shortsTab bool) Page {
	var items []Item
	jsonwalk.Walk(payload, func(key string, value gson.JSON) bool {
		if !ItemKind(key) {
			return true
		}
		if item, ok := Normalize(key, value, shortsTab); ok {
			items = append(items, item)
		}
		return true
	})

	return Page{Items: items, Continuation: continuationToken(payload)}
}

// continuationToken finds the next-page token. A token embedded in a
// "continuationItemRenderer" placeholder is preferred; a bare
// "continuationCommand" anywhere in the tree is the fallback. Only the
// first hit in walk order counts — a payload carries at most one
// meaningful forward token.
func continuationToken(payload gson.JSON) string {
	var token string
	jsonwalk.Walk(payload, func(key string, value gson.JSON) bool {
		if key != "continuationItemRenderer" {
			return true
		}
		if t := str(get(value, "continuationEndpoint", "continuationCommand", "token")); t != "" {
			token = t
			return false
		}
		return true
	})
	if token != "" {
		return token
	}

	if cmd, ok := jsonwalk.FindKey(payload, "continuationCommand"); ok {
		token = str(get(cmd, "token"))
	}
	return token
}

package innertube

import (
	"github.com/use-agent/tubetap/jsonwalk"
	"github.com/ysmood/gson"
)

// Item is the canonical record produced from one raw renderer or
// view-model. ID is the dedup key and is never exposed outside the crawl;
// all other fields are best-effort and empty when unresolvable.
type Item struct {
	ID           string
	URL          string
	Title        string
	Description  string
	ThumbnailURL string
	ViewCount    string
}

// itemKinds is the set of structural kinds recognized as item records.
var itemKinds = map[string]bool{
	"videoRenderer":         true,
	"gridVideoRenderer":     true,
	"reelItemRenderer":      true,
	"shortsLockupViewModel": true,
}

// shortsOnlyKinds always route to the shorts URL, whatever tab they were
// found under.
var shortsOnlyKinds = map[string]bool{
	"reelItemRenderer":      true,
	"shortsLockupViewModel": true,
}

// ItemKind reports whether kind names a recognized item record layout.
func ItemKind(kind string) bool {
	return itemKinds[kind]
}

// strategy attempts to build an Item from one raw record. The boolean is
// false when the record carries no identifier under this layout.
type strategy func(raw gson.JSON) (Item, bool)

// Layouts vary by rendering generation; the first strategy that resolves
// an identifier wins and later ones are not attempted.
var strategies = []strategy{directFields, clickCommand, navigationEndpoint}

// Normalize turns one raw record of the given structural kind into an
// Item. shortsTab marks records discovered on the shorts tab; those, and
// records of a shorts-only kind, get a shorts-style URL. The boolean is
// false when no strategy resolves an identifier, which is the expected
// outcome for container and decoration nodes.
func Normalize(kind string, raw gson.JSON, shortsTab bool) (Item, bool) {
	for _, s := range strategies {
		item, ok := s(raw)
		if !ok {
			continue
		}
		if shortsTab || shortsOnlyKinds[kind] {
			item.URL = ShortsURL(item.ID)
		} else {
			item.URL = WatchURL(item.ID)
		}
		return item, true
	}
	return Item{}, false
}

// directFields handles the legacy renderer layout: the identifier is a
// plain "videoId" field and metadata lives in sibling text nodes.
func directFields(raw gson.JSON) (Item, bool) {
	id := str(get(raw,"videoId"))
	if id == "" {
		return Item{}, false
	}

	title := Text(get(raw,"title"))
	if title == "" {
		title = Text(get(raw,"headline"))
	}

	desc := Text(get(raw,"descriptionSnippet"))
	if desc == "" {
		desc = Text(get(raw,"detailedMetadataSnippets", 0, "snippetText"))
	}

	views := Text(get(raw,"viewCountText"))
	if views == "" {
		views = Text(get(raw,"shortViewCountText"))
	}

	// Thumbnails are listed smallest to largest; the last entry is the
	// highest resolution.
	thumb := ""
	if list := get(raw,"thumbnail", "thumbnails").Arr(); len(list) > 0 {
		thumb = str(get(list[len(list)-1], "url"))
	}

	return Item{
		ID:           id,
		Title:        title,
		Description:  desc,
		ThumbnailURL: thumb,
		ViewCount:    views,
	}, true
}

// clickCommand handles the lockup view-model layout: the identifier is
// buried in the "onTap" command subtree and metadata lives under
// "overlayMetadata" and "thumbnail.sources", never under the legacy field
// names.
func clickCommand(raw gson.JSON) (Item, bool) {
	onTap := get(raw,"onTap")
	if onTap.Nil() {
		return Item{}, false
	}

	var id string
	jsonwalk.Walk(onTap, func(key string, value gson.JSON) bool {
		if key != "watchEndpoint" && key != "reelWatchEndpoint" {
			return true
		}
		if v := str(get(value,"videoId")); v != "" {
			id = v
			return false
		}
		return true
	})
	if id == "" {
		return Item{}, false
	}

	thumb := str(get(raw,"thumbnail", "sources", 0, "url"))

	return Item{
		ID:           id,
		Title:        Text(get(raw,"overlayMetadata", "primaryText")),
		ViewCount:    Text(get(raw,"overlayMetadata", "secondaryText")),
		ThumbnailURL: thumb,
	}, true
}

// navigationEndpoint handles the reel layout: the identifier sits in a
// "navigationEndpoint" reel-watch sub-object. Its thumbnails list is
// ordered largest first, so the first entry is taken here.
func navigationEndpoint(raw gson.JSON) (Item, bool) {
	id := str(get(raw,"navigationEndpoint", "reelWatchEndpoint", "videoId"))
	if id == "" {
		return Item{}, false
	}

	return Item{
		ID:           id,
		Title:        Text(get(raw,"headline")),
		ViewCount:    Text(get(raw,"viewCountText")),
		ThumbnailURL: str(get(raw,"thumbnail", "thumbnails", 0, "url")),
	}, true
}

package innertube

// Root is the canonical origin for all constructed URLs and requests.
const Root = "https://www.youtube.com"

// Tab identifies one of the content categories a channel exposes as a
// separate route.
type Tab struct {
	// Key names the tab in requests and responses: "videos", "lives", "shorts".
	Key string

	// Suffix is appended to the channel's root URL to reach the tab page.
	Suffix string

	// Shorts marks the tab whose items always use the shorts route.
	Shorts bool
}

// Tabs lists the crawlable channel tabs in their canonical order.
var Tabs = []Tab{
	{Key: "videos", Suffix: "/videos"},
	{Key: "lives", Suffix: "/streams"},
	{Key: "shorts", Suffix: "/shorts", Shorts: true},
}

// TabByKey returns the tab definition for key, or false when key names no
// known tab.
func TabByKey(key string) (Tab, bool) {
	for _, t := range Tabs {
		if t.Key == key {
			return t, true
		}
	}
	return Tab{}, false
}

// WatchURL builds the watch-style URL for a video id.
func WatchURL(id string) string {
	return Root + "/watch?v=" + id
}

// ShortsURL builds the shorts-style URL for a video id.
func ShortsURL(id string) string {
	return Root + "/shorts/" + id
}

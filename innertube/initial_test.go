package innertube

import (
	"strings"
	"testing"
)

const channelPageHTML = `<!DOCTYPE html>
<html><head>
<meta property="og:title" content="Example Channel">
<meta property="og:description" content="Channel about examples">
<meta property="og:image" content="https://i.example/avatar.jpg">
<link rel="canonical" href="https://www.youtube.com/@example">
</head><body>
<script>
ytcfg.set({"INNERTUBE_API_KEY":"test-key","INNERTUBE_CLIENT_VERSION":"2.20240101.00.00"});
</script>
<script>
var ytInitialData = {"contents":{"items":[{"videoRenderer":{"videoId":"seed"}}]}};
</script>
</body></html>`

func TestParseInitialPage(t *testing.T) {
	page, err := ParseInitialPage([]byte(channelPageHTML))
	if err != nil {
		t.Fatalf("ParseInitialPage: %v", err)
	}
	if page.APIKey != "test-key" {
		t.Errorf("APIKey = %q", page.APIKey)
	}
	if page.ClientVersion != "2.20240101.00.00" {
		t.Errorf("ClientVersion = %q", page.ClientVersion)
	}

	extracted := ExtractPage(page.Data, false)
	if len(extracted.Items) != 1 || extracted.Items[0].ID != "seed" {
		t.Errorf("initial data items = %+v, want the embedded seed record", extracted.Items)
	}

	if page.Meta.Title != "Example Channel" {
		t.Errorf("Meta.Title = %q", page.Meta.Title)
	}
	if page.Meta.AvatarURL != "https://i.example/avatar.jpg" {
		t.Errorf("Meta.AvatarURL = %q", page.Meta.AvatarURL)
	}
	if page.Meta.CanonicalURL != "https://www.youtube.com/@example" {
		t.Errorf("Meta.CanonicalURL = %q", page.Meta.CanonicalURL)
	}
}

func TestParseInitialPage_BareAssignmentFallback(t *testing.T) {
	html := strings.Replace(channelPageHTML, "var ytInitialData =", "window.ytInitialData =", 1)
	page, err := ParseInitialPage([]byte(html))
	if err != nil {
		t.Fatalf("ParseInitialPage: %v", err)
	}
	if len(ExtractPage(page.Data, false).Items) != 1 {
		t.Error("bare ytInitialData assignment was not picked up")
	}
}

func TestParseInitialPage_MissingKeys(t *testing.T) {
	if _, err := ParseInitialPage([]byte("<html><body>nothing here</body></html>")); err != ErrNoClientKeys {
		t.Errorf("err = %v, want ErrNoClientKeys", err)
	}

	noData := `<script>{"INNERTUBE_API_KEY":"k","INNERTUBE_CLIENT_VERSION":"v"}</script>`
	if _, err := ParseInitialPage([]byte(noData)); err != ErrNoInitialData {
		t.Errorf("err = %v, want ErrNoInitialData", err)
	}
}

func TestWatchDescription(t *testing.T) {
	html := `<script>var ytInitialPlayerResponse = {"videoDetails":{"shortDescription":"full text here"}};</script>`
	if got := WatchDescription([]byte(html)); got != "full text here" {
		t.Errorf("WatchDescription = %q", got)
	}
	if got := WatchDescription([]byte("<html></html>")); got != "" {
		t.Errorf("WatchDescription on empty page = %q, want empty", got)
	}
}

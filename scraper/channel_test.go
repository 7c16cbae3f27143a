package scraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/use-agent/tubetap/config"
	"github.com/use-agent/tubetap/models"
)

// rewriteTransport sends every request to the fake server, whatever host
// the crawler asked for. Lets the tests keep canonical youtube.com URLs in
// requests and item output.
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

// fakeChannel is an httptest-backed stand-in for the platform: tab pages by
// suffix, continuation payloads by token, watch pages by video id.
type fakeChannel struct {
	mu          sync.Mutex
	browseCalls int

	tabs    map[string]string // "/videos" → initial-data JSON; missing → plain page
	pages   map[string]string // token → continuation payload JSON
	watch   map[string]string // video id → full description
	failTab string            // tab suffix that responds 500
}

func (f *fakeChannel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.browseCalls
}

func (f *fakeChannel) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/youtubei/v1/browse") {
			f.mu.Lock()
			f.browseCalls++
			f.mu.Unlock()

			var body struct {
				Continuation string `json:"continuation"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)

			f.mu.Lock()
			payload, ok := f.pages[body.Continuation]
			f.mu.Unlock()
			if !ok {
				http.Error(w, "unknown continuation", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, payload)
			return
		}

		if r.URL.Path == "/watch" {
			id := r.URL.Query().Get("v")
			desc, ok := f.watch[id]
			if !ok {
				http.NotFound(w, r)
				return
			}
			fmt.Fprintf(w, `<script>var ytInitialPlayerResponse = {"videoDetails":{"shortDescription":%q}};</script>`, desc)
			return
		}

		for suffix, data := range f.tabs {
			if strings.HasSuffix(r.URL.Path, suffix) {
				if suffix == f.failTab {
					http.Error(w, "upstream broken", http.StatusInternalServerError)
					return
				}
				fmt.Fprint(w, channelHTML(data))
				return
			}
		}
		if f.failTab != "" && strings.HasSuffix(r.URL.Path, f.failTab) {
			http.Error(w, "upstream broken", http.StatusInternalServerError)
			return
		}
		// A tab the channel does not have: a page without any data block.
		fmt.Fprint(w, "<html><body>nothing to see</body></html>")
	})
}

func channelHTML(initialData string) string {
	return `<html><head>
<meta property="og:title" content="Fake Channel">
<meta property="og:image" content="https://i.example/avatar.jpg">
</head><body>
<script>ytcfg.set({"INNERTUBE_API_KEY":"k123","INNERTUBE_CLIENT_VERSION":"2.20240101"});</script>
<script>var ytInitialData = ` + initialData + `;</script>
</body></html>`
}

func videoRenderer(id string) string {
	return fmt.Sprintf(`{"videoRenderer": {"videoId": %q, "title": {"simpleText": "Video %s"}, "descriptionSnippet": {"simpleText": "snippet %s"}}}`, id, id, id)
}

func lockup(id string) string {
	return fmt.Sprintf(`{"shortsLockupViewModel": {
		"onTap": {"innertubeCommand": {"reelWatchEndpoint": {"videoId": %q}}},
		"overlayMetadata": {"primaryText": {"content": "Short %s"}}
	}}`, id, id)
}

func continuationItem(token string) string {
	return fmt.Sprintf(`{"continuationItemRenderer": {"continuationEndpoint": {"continuationCommand": {"token": %q}}}}`, token)
}

func payload(parts ...string) string {
	return `{"contents": {"items": [` + strings.Join(parts, ",") + `]}}`
}

func testCrawlConfig() config.CrawlConfig {
	return config.CrawlConfig{
		FetchTimeout:   5 * time.Second,
		EnrichTimeout:  5 * time.Second,
		PageDelay:      0, // no pacing in tests
		MaxPagesPerTab: 50,
		MaxItemsPerTab: 1000,
		LocaleHL:       "en",
		LocaleGL:       "US",
	}
}

func newTestScraper(t *testing.T, fc *fakeChannel) *Scraper {
	t.Helper()
	return newTestScraperCfg(t, fc, testCrawlConfig())
}

func newTestScraperCfg(t *testing.T, fc *fakeChannel, cfg config.CrawlConfig) *Scraper {
	t.Helper()
	server := httptest.NewServer(fc.handler())
	t.Cleanup(server.Close)

	target, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	sc, err := NewScraper(cfg, WithHTTPClient(&http.Client{
		Transport: rewriteTransport{target: target},
	}))
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

func itemURLs(items []models.VideoItem) []string {
	urls := make([]string, 0, len(items))
	for _, it := range items {
		urls = append(urls, it.URL)
	}
	return urls
}

func TestScrapeChannel_EndToEnd(t *testing.T) {
	fc := &fakeChannel{
		tabs: map[string]string{
			"/videos": payload(videoRenderer("a"), videoRenderer("b"), continuationItem("T1")),
		},
		pages: map[string]string{
			"T1": payload(videoRenderer("c")),
		},
	}
	sc := newTestScraper(t, fc)

	resp, err := sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
		ChannelURL: "https://www.youtube.com/@chan",
		Tabs:       []string{"videos"},
	})
	if err != nil {
		t.Fatalf("ScrapeChannel: %v", err)
	}

	want := []string{
		"https://www.youtube.com/watch?v=a",
		"https://www.youtube.com/watch?v=b",
		"https://www.youtube.com/watch?v=c",
	}
	got := itemURLs(resp.Videos)
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("videos = %v, want %v", got, want)
	}
	if resp.TotalVideos != 3 {
		t.Errorf("total_videos = %d, want 3", resp.TotalVideos)
	}
	if fc.calls() != 1 {
		t.Errorf("browse calls = %d, want 1", fc.calls())
	}
	if len(resp.IncompleteTabs) != 0 {
		t.Errorf("incomplete_tabs = %v, want none", resp.IncompleteTabs)
	}
	if resp.Metadata.Title != "Fake Channel" {
		t.Errorf("metadata title = %q", resp.Metadata.Title)
	}
}

func TestScrapeChannel_CapRespected(t *testing.T) {
	fc := &fakeChannel{
		tabs: map[string]string{
			"/videos": payload(videoRenderer("a"), videoRenderer("b"), continuationItem("T1")),
		},
		pages: map[string]string{
			"T1": payload(videoRenderer("c")),
		},
	}
	sc := newTestScraper(t, fc)

	resp, err := sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
		ChannelURL: "https://www.youtube.com/@chan",
		Tabs:       []string{"videos"},
		MaxItems:   2,
	})
	if err != nil {
		t.Fatalf("ScrapeChannel: %v", err)
	}
	if resp.TotalVideos != 2 {
		t.Errorf("total_videos = %d, want exactly the cap", resp.TotalVideos)
	}
	// A crawl that already met its cap must not fetch the next page.
	if fc.calls() != 0 {
		t.Errorf("browse calls = %d, want 0", fc.calls())
	}
	// A cap the caller asked for is not a degraded result.
	if len(resp.IncompleteTabs) != 0 {
		t.Errorf("incomplete_tabs = %v, want none", resp.IncompleteTabs)
	}
}

func TestScrapeChannel_ItemCeilingMarksIncomplete(t *testing.T) {
	fc := &fakeChannel{
		tabs: map[string]string{
			"/videos": payload(videoRenderer("a"), videoRenderer("b"),
				videoRenderer("c"), videoRenderer("d"), continuationItem("T1")),
		},
		pages: map[string]string{
			"T1": payload(videoRenderer("e")),
		},
	}
	cfg := testCrawlConfig()
	cfg.MaxItemsPerTab = 3
	sc := newTestScraperCfg(t, fc, cfg)

	// The caller's cap is above the ceiling, so the ceiling is what cuts
	// the crawl short.
	resp, err := sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
		ChannelURL: "https://www.youtube.com/@chan",
		Tabs:       []string{"videos"},
		MaxItems:   100,
	})
	if err != nil {
		t.Fatalf("ScrapeChannel: %v", err)
	}
	if resp.TotalVideos != 3 {
		t.Errorf("total_videos = %d, want the ceiling", resp.TotalVideos)
	}
	if len(resp.IncompleteTabs) != 1 || resp.IncompleteTabs[0] != "videos" {
		t.Errorf("incomplete_tabs = %v, want [videos]; a ceiling stop with a pending token is degraded", resp.IncompleteTabs)
	}
	if fc.calls() != 0 {
		t.Errorf("browse calls = %d, want 0", fc.calls())
	}
}

func TestScrapeChannel_DedupKeepsFirstOccurrence(t *testing.T) {
	fc := &fakeChannel{
		tabs: map[string]string{
			"/videos": payload(videoRenderer("a"), videoRenderer("b"), continuationItem("T1")),
		},
		pages: map[string]string{
			"T1": payload(videoRenderer("b"), videoRenderer("c")),
		},
	}
	sc := newTestScraper(t, fc)

	resp, err := sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
		ChannelURL: "https://www.youtube.com/@chan",
		Tabs:       []string{"videos"},
	})
	if err != nil {
		t.Fatalf("ScrapeChannel: %v", err)
	}
	got := itemURLs(resp.Videos)
	if len(got) != 3 {
		t.Fatalf("videos = %v, want 3 unique items", got)
	}
	seen := map[string]bool{}
	for _, u := range got {
		if seen[u] {
			t.Errorf("duplicate item %s in result", u)
		}
		seen[u] = true
	}
	if got[1] != "https://www.youtube.com/watch?v=b" {
		t.Errorf("item b moved to %v; the first occurrence must be kept", got)
	}
}

func TestScrapeChannel_NonAdvancingTokenTerminates(t *testing.T) {
	fc := &fakeChannel{
		tabs: map[string]string{
			"/videos": payload(videoRenderer("a"), continuationItem("T1")),
		},
		pages: map[string]string{
			// The continuation echoes the token that produced it.
			"T1": payload(videoRenderer("b"), continuationItem("T1")),
		},
	}
	sc := newTestScraper(t, fc)

	done := make(chan struct{})
	var resp *models.ChannelResponse
	var err error
	go func() {
		resp, err = sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
			ChannelURL: "https://www.youtube.com/@chan",
			Tabs:       []string{"videos"},
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("crawl did not terminate on a non-advancing token")
	}
	if err != nil {
		t.Fatalf("ScrapeChannel: %v", err)
	}
	if resp.TotalVideos != 2 {
		t.Errorf("total_videos = %d, want 2", resp.TotalVideos)
	}
	if fc.calls() != 1 {
		t.Errorf("browse calls = %d, want exactly 1", fc.calls())
	}
}

func TestScrapeChannel_EmptyFetchedPageStops(t *testing.T) {
	fc := &fakeChannel{
		tabs: map[string]string{
			"/videos": payload(videoRenderer("a"), continuationItem("T1")),
		},
		pages: map[string]string{
			"T1": payload(continuationItem("T2")),
			"T2": payload(videoRenderer("never-reached")),
		},
	}
	sc := newTestScraper(t, fc)

	resp, err := sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
		ChannelURL: "https://www.youtube.com/@chan",
		Tabs:       []string{"videos"},
	})
	if err != nil {
		t.Fatalf("ScrapeChannel: %v", err)
	}
	if resp.TotalVideos != 1 {
		t.Errorf("total_videos = %d, want 1 (empty page ends the crawl)", resp.TotalVideos)
	}
	if fc.calls() != 1 {
		t.Errorf("browse calls = %d, want 1", fc.calls())
	}
}

func TestScrapeChannel_TransportFailureDegrades(t *testing.T) {
	fc := &fakeChannel{
		tabs: map[string]string{
			// Token T-missing has no payload; the browse endpoint will 500.
			"/videos": payload(videoRenderer("a"), videoRenderer("b"), continuationItem("T-missing")),
		},
	}
	sc := newTestScraper(t, fc)

	resp, err := sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
		ChannelURL: "https://www.youtube.com/@chan",
		Tabs:       []string{"videos"},
	})
	if err != nil {
		t.Fatalf("ScrapeChannel: %v (a mid-crawl transport failure must not fail the request)", err)
	}
	if resp.TotalVideos != 2 {
		t.Errorf("total_videos = %d, want the items collected before the failure", resp.TotalVideos)
	}
	if len(resp.IncompleteTabs) != 1 || resp.IncompleteTabs[0] != "videos" {
		t.Errorf("incomplete_tabs = %v, want [videos]", resp.IncompleteTabs)
	}
}

func TestScrapeChannel_TabIsolation(t *testing.T) {
	fc := &fakeChannel{
		tabs: map[string]string{
			"/videos": payload(videoRenderer("a"), videoRenderer("b")),
			"/shorts": payload(lockup("s1")),
			// No /streams entry: that tab serves a page with no data block.
		},
	}
	sc := newTestScraper(t, fc)

	resp, err := sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
		ChannelURL: "https://www.youtube.com/@chan",
	})
	if err != nil {
		t.Fatalf("ScrapeChannel: %v", err)
	}
	if resp.TotalVideos != 2 {
		t.Errorf("total_videos = %d, want 2", resp.TotalVideos)
	}
	if resp.TotalLives != 0 {
		t.Errorf("total_lives = %d, want 0", resp.TotalLives)
	}
	if resp.TotalShorts != 1 {
		t.Errorf("total_shorts = %d, want 1", resp.TotalShorts)
	}
	if resp.Shorts[0].URL != "https://www.youtube.com/shorts/s1" {
		t.Errorf("short URL = %q, want shorts-style route", resp.Shorts[0].URL)
	}
	// A tab the channel simply lacks is empty, not degraded.
	if len(resp.IncompleteTabs) != 0 {
		t.Errorf("incomplete_tabs = %v, want none", resp.IncompleteTabs)
	}
}

func TestScrapeChannel_SecondaryTabFetchFailureMarksIncomplete(t *testing.T) {
	fc := &fakeChannel{
		tabs: map[string]string{
			"/videos": payload(videoRenderer("a")),
		},
		failTab: "/streams",
	}
	sc := newTestScraper(t, fc)

	resp, err := sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
		ChannelURL: "https://www.youtube.com/@chan",
		Tabs:       []string{"videos", "lives"},
	})
	if err != nil {
		t.Fatalf("ScrapeChannel: %v", err)
	}
	if resp.TotalVideos != 1 || resp.TotalLives != 0 {
		t.Errorf("totals = (%d, %d), want (1, 0)", resp.TotalVideos, resp.TotalLives)
	}
	if len(resp.IncompleteTabs) != 1 || resp.IncompleteTabs[0] != "lives" {
		t.Errorf("incomplete_tabs = %v, want [lives]", resp.IncompleteTabs)
	}
}

func TestScrapeChannel_FirstTabUnparsableFailsHard(t *testing.T) {
	fc := &fakeChannel{} // every tab serves a page without keys or data
	sc := newTestScraper(t, fc)

	_, err := sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
		ChannelURL: "https://www.youtube.com/@chan",
		Tabs:       []string{"videos"},
	})
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		t.Fatalf("err = %v, want *models.ScrapeError", err)
	}
	if scrapeErr.Code != models.ErrCodeChannelParse {
		t.Errorf("code = %s, want %s", scrapeErr.Code, models.ErrCodeChannelParse)
	}
}

func TestScrapeChannel_FirstTabFetchFailureFailsHard(t *testing.T) {
	fc := &fakeChannel{failTab: "/videos"}
	sc := newTestScraper(t, fc)

	_, err := sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
		ChannelURL: "https://www.youtube.com/@chan",
		Tabs:       []string{"videos"},
	})
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		t.Fatalf("err = %v, want *models.ScrapeError", err)
	}
	if scrapeErr.Code != models.ErrCodeChannelFetch {
		t.Errorf("code = %s, want %s", scrapeErr.Code, models.ErrCodeChannelFetch)
	}
}

func TestScrapeChannel_UnknownTabRejected(t *testing.T) {
	sc := newTestScraper(t, &fakeChannel{})

	_, err := sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
		ChannelURL: "https://www.youtube.com/@chan",
		Tabs:       []string{"playlists"},
	})
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) || scrapeErr.Code != models.ErrCodeInvalidInput {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestScrapeChannel_DescriptionEnrichment(t *testing.T) {
	fc := &fakeChannel{
		tabs: map[string]string{
			"/videos": payload(videoRenderer("a"), videoRenderer("b")),
		},
		watch: map[string]string{
			"a": "the whole description of a",
			// b has no watch page; its snippet must survive.
		},
	}
	sc := newTestScraper(t, fc)

	resp, err := sc.ScrapeChannel(t.Context(), &models.ScrapeRequest{
		ChannelURL:      "https://www.youtube.com/@chan",
		Tabs:            []string{"videos"},
		FullDescription: true,
	})
	if err != nil {
		t.Fatalf("ScrapeChannel: %v", err)
	}
	if resp.Videos[0].Description != "the whole description of a" {
		t.Errorf("enriched description = %q", resp.Videos[0].Description)
	}
	if resp.Videos[1].Description != "snippet b" {
		t.Errorf("description = %q, want the snippet kept on lookup failure", resp.Videos[1].Description)
	}
}

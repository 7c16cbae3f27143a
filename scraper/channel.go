package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/sourcegraph/conc"
	"github.com/use-agent/tubetap/innertube"
	"github.com/use-agent/tubetap/models"
	"github.com/ysmood/gson"
	"golang.org/x/time/rate"
)

// session is the client identity the continuation endpoint demands,
// extracted once from the first tab page and held for the crawl's lifetime.
type session struct {
	apiKey        string
	clientVersion string
}

// tabResult is one tab's crawl outcome. incomplete marks a crawl cut short
// by a transport failure, a safety ceiling, or the deadline — as opposed to
// natural exhaustion or the caller's cap.
type tabResult struct {
	items      []innertube.Item
	incomplete bool
}

// ScrapeChannel crawls the requested tabs of one channel and assembles the
// aggregate response. The first requested tab's page is load-bearing: a
// fetch or parse failure there fails the whole request. Subsequent tabs
// degrade to empty results instead, because a channel legitimately lacking
// a tab must not fail the crawl.
func (s *Scraper) ScrapeChannel(ctx context.Context, req *models.ScrapeRequest) (*models.ChannelResponse, error) {
	s.activeCrawls.Add(1)
	defer s.activeCrawls.Add(-1)

	tabs, err := resolveTabs(req.Tabs)
	if err != nil {
		return nil, err
	}

	base := strings.TrimRight(req.ChannelURL, "/")
	crawlStart := time.Now()

	firstURL := base + tabs[0].Suffix
	html, err := s.fetchTabPage(ctx, firstURL)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeChannelFetch,
			"failed to fetch channel page", err)
	}
	seed, err := innertube.ParseInitialPage(html)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeChannelParse,
			"channel page has no extractable data", err)
	}

	sess := &session{apiKey: seed.APIKey, clientVersion: seed.ClientVersion}

	// One limiter paces every upstream request of this crawl, whichever
	// tab issues it.
	limiter := rate.NewLimiter(rate.Every(s.cfg.PageDelay), 1)

	results := make([]tabResult, len(tabs))
	var wg conc.WaitGroup
	for i, tab := range tabs {
		var tabSeed *innertube.InitialPage
		if i == 0 {
			tabSeed = seed
		}
		wg.Go(func() {
			results[i] = s.crawlTab(ctx, sess, limiter, base, tab, tabSeed, req.MaxItems)
		})
	}
	wg.Wait()
	crawlMs := time.Since(crawlStart).Milliseconds()

	resp := &models.ChannelResponse{
		Success: true,
		Channel: req.ChannelURL,
		Metadata: models.ChannelMetadata{
			Title:        seed.Meta.Title,
			Description:  seed.Meta.Description,
			AvatarURL:    seed.Meta.AvatarURL,
			CanonicalURL: seed.Meta.CanonicalURL,
		},
		Videos: []models.VideoItem{},
		Lives:  []models.VideoItem{},
		Shorts: []models.VideoItem{},
	}

	for i, tab := range tabs {
		items := toVideoItems(results[i].items)
		switch tab.Key {
		case "videos":
			resp.Videos = items
			resp.TotalVideos = len(items)
		case "lives":
			resp.Lives = items
			resp.TotalLives = len(items)
		case "shorts":
			resp.Shorts = items
			resp.TotalShorts = len(items)
		}
		if results[i].incomplete {
			resp.IncompleteTabs = append(resp.IncompleteTabs, tab.Key)
		}
	}

	var enrichMs int64
	if req.FullDescription {
		enrichStart := time.Now()
		s.enrichAll(ctx, limiter, resp.Videos, resp.Lives, resp.Shorts)
		enrichMs = time.Since(enrichStart).Milliseconds()
	}

	resp.Timing = models.TimingInfo{CrawlMs: crawlMs, EnrichMs: enrichMs}
	return resp, nil
}

// crawlTab drives the fetch/extract/deduplicate loop for one tab until
// exhaustion, the caller's cap, or a safety ceiling. seed is non-nil only
// for the load-bearing first tab; other tabs fetch and parse their own
// page here and degrade to an empty result on failure.
func (s *Scraper) crawlTab(ctx context.Context, sess *session, limiter *rate.Limiter, base string, tab innertube.Tab, seed *innertube.InitialPage, capItems int) tabResult {
	tabURL := base + tab.Suffix

	if seed == nil {
		html, err := s.fetchTabPage(ctx, tabURL)
		if err != nil {
			slog.Debug("tab page fetch failed", "tab", tab.Key, "error", err)
			return tabResult{incomplete: true}
		}
		seed, err = innertube.ParseInitialPage(html)
		if err != nil {
			// A channel without this tab serves a page with no data block;
			// that is an empty tab, not a degraded one.
			slog.Debug("tab page has no data", "tab", tab.Key, "error", err)
			return tabResult{}
		}
	}

	// byCeiling records whether the effective limit is the safety ceiling
	// rather than the caller's cap; stopping at the ceiling with pages
	// remaining is a degraded result, stopping at the cap is not.
	limit := s.cfg.MaxItemsPerTab
	byCeiling := true
	if capItems > 0 && capItems <= limit {
		limit = capItems
		byCeiling = false
	}

	var items []innertube.Item
	seen := make(map[string]struct{})
	incomplete := false

	payload := seed.Data
	token := "" // the token that produced payload; empty for the seed page
	fetched := false

	for pages := 0; ; pages++ {
		page := innertube.ExtractPage(payload, tab.Shorts)

		// A fetched page with no items means the platform has nothing
		// further, token or not.
		if fetched && len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			items = append(items, item)
			if len(items) >= limit {
				break
			}
		}
		if len(items) >= limit {
			if byCeiling && page.Continuation != "" {
				incomplete = true
			}
			break
		}

		next := page.Continuation
		if next == "" {
			break
		}
		// A token equal to the one just consumed signals a non-advancing
		// page; stop rather than loop forever.
		if next == token {
			break
		}
		if pages+1 >= s.cfg.MaxPagesPerTab {
			incomplete = true
			break
		}
		token = next

		if err := limiter.Wait(ctx); err != nil {
			incomplete = true
			break
		}

		var ok bool
		payload, ok = s.browse(ctx, sess, token, tabURL)
		if !ok {
			incomplete = true
			break
		}
		fetched = true
	}

	// A page can yield more items than the remaining budget; trim the
	// overrun so the cap is exact.
	if capItems > 0 && len(items) > capItems {
		items = items[:capItems]
	}
	return tabResult{items: items, incomplete: incomplete}
}

// browse performs one continuation exchange. Any transport error or
// non-success status degrades to "no payload", which the crawl loop treats
// as the natural end of pagination for that tab.
func (s *Scraper) browse(ctx context.Context, sess *session, token, referer string) (gson.JSON, bool) {
	fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	payload := map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"hl":            s.cfg.LocaleHL,
				"gl":            s.cfg.LocaleGL,
				"clientName":    "WEB",
				"clientVersion": sess.clientVersion,
			},
		},
		"continuation": token,
	}
	headers := map[string]string{
		"Origin":                   innertube.Root,
		"Referer":                  referer,
		"X-Youtube-Client-Name":    "1",
		"X-Youtube-Client-Version": sess.clientVersion,
	}

	browseURL := innertube.Root + "/youtubei/v1/browse?key=" + url.QueryEscape(sess.apiKey)
	result, err := s.fetcher.postJSON(fctx, browseURL, payload, headers)
	if err != nil {
		slog.Debug("continuation fetch failed", "error", err)
		return gson.New(nil), false
	}
	return result, true
}

// fetchTabPage retrieves one channel tab's HTML, retrying once on
// transient transport failures.
func (s *Scraper) fetchTabPage(ctx context.Context, pageURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()
			b, err := s.fetcher.fetchHTML(fctx, pageURL, s.acceptLanguage())
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Attempts(2),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	return body, err
}

// resolveTabs maps requested tab keys to definitions, preserving the
// canonical tab order.
func resolveTabs(keys []string) ([]innertube.Tab, error) {
	if len(keys) == 0 {
		return innertube.Tabs, nil
	}

	requested := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := innertube.TabByKey(k); !ok {
			return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
				"unknown tab: "+k, nil)
		}
		requested[k] = true
	}

	var tabs []innertube.Tab
	for _, t := range innertube.Tabs {
		if requested[t.Key] {
			tabs = append(tabs, t)
		}
	}
	return tabs, nil
}

// toVideoItems converts crawl items to the external representation,
// dropping the raw identifier.
func toVideoItems(items []innertube.Item) []models.VideoItem {
	out := make([]models.VideoItem, 0, len(items))
	for _, it := range items {
		out = append(out, models.VideoItem{
			URL:          it.URL,
			Title:        it.Title,
			Description:  it.Description,
			ThumbnailURL: it.ThumbnailURL,
			ViewCount:    it.ViewCount,
		})
	}
	return out
}

package scraper

import (
	"context"
	"log/slog"

	"github.com/use-agent/tubetap/innertube"
	"github.com/use-agent/tubetap/models"
	"golang.org/x/time/rate"
)

// enrichAll runs the full-description lookup over every item of every
// list, in place. Each lookup is one extra watch-page fetch with its own
// timeout; failures leave the snippet description untouched. The whole
// pass stops quietly when the crawl deadline expires.
func (s *Scraper) enrichAll(ctx context.Context, limiter *rate.Limiter, lists ...[]models.VideoItem) {
	for _, list := range lists {
		for i := range list {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			if desc, ok := s.fetchFullDescription(ctx, list[i].URL); ok {
				list[i].Description = desc
			}
		}
	}
}

// fetchFullDescription pulls the complete description from an item's watch
// page. The boolean is false when the page could not be fetched or carries
// no description.
func (s *Scraper) fetchFullDescription(ctx context.Context, itemURL string) (string, bool) {
	fctx, cancel := context.WithTimeout(ctx, s.cfg.EnrichTimeout)
	defer cancel()

	body, err := s.fetcher.fetchHTML(fctx, itemURL, s.acceptLanguage())
	if err != nil {
		slog.Debug("description lookup failed", "url", itemURL, "error", err)
		return "", false
	}

	desc := innertube.WatchDescription(body)
	return desc, desc != ""
}

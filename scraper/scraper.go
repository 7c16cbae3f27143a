package scraper

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/use-agent/tubetap/config"
)

// Scraper owns the upstream transport session and drives channel crawls.
// It is safe for concurrent use.
type Scraper struct {
	cfg          config.CrawlConfig
	fetcher      *fetcher
	activeCrawls atomic.Int32
	startTime    time.Time
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHTTPClient replaces the fingerprinted transport with a plain client.
// Useful for testing against local servers.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) {
		s.fetcher = newFetcherWithClient(c)
	}
}

// NewScraper creates the transport session and the crawler around it.
func NewScraper(cfg config.CrawlConfig, opts ...Option) (*Scraper, error) {
	s := &Scraper{
		cfg:       cfg,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.fetcher == nil {
		f, err := newFetcher(cfg.DefaultProxy)
		if err != nil {
			return nil, err
		}
		s.fetcher = f
	}
	return s, nil
}

// Stats reports the number of crawls currently in flight.
func (s *Scraper) Stats() int {
	return int(s.activeCrawls.Load())
}

// acceptLanguage builds the Accept-Language header from the configured locale.
func (s *Scraper) acceptLanguage() string {
	if s.cfg.LocaleHL == "" {
		return "en-US,en;q=0.9"
	}
	return s.cfg.LocaleHL + "-" + s.cfg.LocaleGL + "," + s.cfg.LocaleHL + ";q=0.9"
}

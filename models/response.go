package models

// VideoItem is one extracted video, live stream, or short. All fields are
// best-effort strings; empty means unresolvable, never null. The raw
// platform identifier is internal to the crawl and never exposed here.
type VideoItem struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
	ViewCount    string `json:"view_count,omitempty"`
}

// ChannelMetadata is channel-level information scraped from the tab page.
type ChannelMetadata struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	AvatarURL    string `json:"avatar_url"`
	CanonicalURL string `json:"canonical_url"`
}

// ChannelResponse is the response for POST /api/v1/scrape.
type ChannelResponse struct {
	// Success indicates whether the crawl completed without a hard failure.
	Success bool `json:"success"`

	// Channel echoes the requested channel URL.
	Channel string `json:"channel"`

	// Metadata holds channel-level information.
	Metadata ChannelMetadata `json:"metadata"`

	// Per-tab item counts.
	TotalVideos int `json:"total_videos"`
	TotalLives  int `json:"total_lives"`
	TotalShorts int `json:"total_shorts"`

	// Per-tab ordered item lists; order is discovery order.
	Videos []VideoItem `json:"videos"`
	Lives  []VideoItem `json:"lives"`
	Shorts []VideoItem `json:"shorts"`

	// IncompleteTabs names tabs whose crawl ended on a transport failure,
	// safety ceiling, or deadline rather than natural exhaustion. An empty
	// tab absent from this list genuinely has no content.
	IncompleteTabs []string `json:"incomplete_tabs,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is set when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo provides duration breakdowns for a scrape operation.
type TimingInfo struct {
	TotalMs  int64 `json:"total_ms"`
	CrawlMs  int64 `json:"crawl_ms,omitempty"`
	EnrichMs int64 `json:"enrich_ms,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	ActiveCrawls int    `json:"active_crawls"`
	Version      string `json:"version"`
}

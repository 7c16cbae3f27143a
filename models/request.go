package models

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// ChannelURL is the channel's root URL. Required.
	ChannelURL string `json:"channel_url" binding:"required,url"`

	// MaxItems caps each tab's result list. 0 means unbounded up to the
	// configured safety ceiling.
	MaxItems int `json:"max_items,omitempty" binding:"omitempty,min=0"`

	// Tabs restricts the crawl to a subset of "videos", "lives", "shorts".
	// Empty means all three.
	Tabs []string `json:"tabs,omitempty"`

	// FullDescription re-fetches each item's watch page after the crawl to
	// replace the snippet description with the full one. Slow: one extra
	// request per item.
	FullDescription bool `json:"full_description,omitempty"`

	// Timeout is the maximum duration in seconds for the whole crawl
	// across all tabs. Default: 120. Max: 600.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=600"`

	// MaxAge enables the response cache: a cached response younger than
	// MaxAge milliseconds is returned instead of crawling. 0 disables.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 120
	}
	if len(r.Tabs) == 0 {
		r.Tabs = []string{"videos", "lives", "shorts"}
	}
}

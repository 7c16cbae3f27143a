package innertube

import (
	"bytes"
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ysmood/gson"
)

// Parse failures on a channel tab page. The first tab's page is
// load-bearing for the whole request; later tabs degrade to empty results.
var (
	ErrNoClientKeys  = errors.New("innertube: client keys not found in page")
	ErrNoInitialData = errors.New("innertube: initial data block not found in page")
)

var (
	reAPIKey        = regexp.MustCompile(`"INNERTUBE_API_KEY"\s*:\s*"([^"]+)"`)
	reClientVersion = regexp.MustCompile(`"INNERTUBE_CLIENT_VERSION"\s*:\s*"([^"]+)"`)
	reInitialData   = regexp.MustCompile(`(?s)var\s+ytInitialData\s*=\s*(\{.*?\});`)
	reInitialBare   = regexp.MustCompile(`(?s)ytInitialData\s*=\s*(\{.*?\});`)
	rePlayerResp    = regexp.MustCompile(`(?s)var\s+ytInitialPlayerResponse\s*=\s*(\{.*?\});`)
)

// ChannelMeta is the channel-level metadata scraped from a tab page's head.
type ChannelMeta struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	AvatarURL    string `json:"avatar_url"`
	CanonicalURL string `json:"canonical_url"`
}

// InitialPage is everything extracted from one channel tab's HTML: the
// client identity the continuation endpoint demands, the embedded first
// page of data, and the channel metadata.
type InitialPage struct {
	APIKey        string
	ClientVersion string
	Data          gson.JSON
	Meta          ChannelMeta
}

// ParseInitialPage extracts the client keys and the ytInitialData block
// from a channel tab page. Both are required; a page missing either cannot
// be crawled at all.
func ParseInitialPage(html []byte) (*InitialPage, error) {
	keyM := reAPIKey.FindSubmatch(html)
	verM := reClientVersion.FindSubmatch(html)
	if keyM == nil || verM == nil {
		return nil, ErrNoClientKeys
	}

	dataM := reInitialData.FindSubmatch(html)
	if dataM == nil {
		dataM = reInitialBare.FindSubmatch(html)
	}
	if dataM == nil {
		return nil, ErrNoInitialData
	}

	return &InitialPage{
		APIKey:        string(keyM[1]),
		ClientVersion: string(verM[1]),
		Data:          gson.New(dataM[1]),
		Meta:          parseChannelMeta(html),
	}, nil
}

// parseChannelMeta reads the channel's Open Graph tags. Best effort: a page
// without them yields zero-value metadata, never an error.
func parseChannelMeta(html []byte) ChannelMeta {
	var meta ChannelMeta
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return meta
	}

	og := func(property string) string {
		sel := doc.Find(`meta[property="og:` + property + `"]`).First()
		content, _ := sel.Attr("content")
		return strings.TrimSpace(content)
	}

	meta.Title = og("title")
	meta.Description = og("description")
	meta.AvatarURL = og("image")
	meta.CanonicalURL, _ = doc.Find(`link[rel="canonical"]`).First().Attr("href")
	return meta
}

// WatchDescription pulls the full description out of a watch page's
// embedded player response. Empty string when the page carries none; used
// by the optional description-enrichment pass.
func WatchDescription(html []byte) string {
	m := rePlayerResp.FindSubmatch(html)
	if m == nil {
		return ""
	}
	return str(get(gson.New(m[1]), "videoDetails", "shortDescription"))
}

package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	tls2 "github.com/refraction-networking/utls"
	"github.com/ysmood/gson"
	xproxy "golang.org/x/net/proxy"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// fetcher performs all upstream exchanges of a crawl with a Chrome TLS
// fingerprint (utls) and one session-scoped cookie jar. The jar is written
// only by responses; no crawl code mutates it, so one fetcher is safe for
// concurrent tab crawls.
type fetcher struct {
	client *http.Client
}

// newFetcher builds the shared HTTP client. proxy may be empty.
func newFetcher(proxy string) (*fetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, proxy)
		},
	}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &fetcher{client: &http.Client{Transport: transport, Jar: jar}}, nil
}

// newFetcherWithClient wraps an externally supplied client. Used by tests
// and callers that need to bypass the fingerprinted transport.
func newFetcherWithClient(c *http.Client) *fetcher {
	return &fetcher{client: c}
}

// fetchHTML retrieves a page with browser-like headers.
func (f *fetcher) fetchHTML(ctx context.Context, targetURL, acceptLanguage string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("httpfetch: HTTP %d for %s", resp.StatusCode, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024)) // 10 MB cap
	if err != nil {
		return nil, fmt.Errorf("httpfetch: read body: %w", err)
	}
	return body, nil
}

// postJSON sends a JSON payload and parses the JSON response body.
// headers are applied on top of the defaults.
func (f *fetcher) postJSON(ctx context.Context, targetURL string, payload any, headers map[string]string) (gson.JSON, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gson.New(nil), fmt.Errorf("httpfetch: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return gson.New(nil), fmt.Errorf("httpfetch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", chromeUA)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return gson.New(nil), fmt.Errorf("httpfetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return gson.New(nil), fmt.Errorf("httpfetch: HTTP %d for %s", resp.StatusCode, targetURL)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return gson.New(nil), fmt.Errorf("httpfetch: read body: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return gson.New(nil), fmt.Errorf("httpfetch: decode body: %w", err)
	}
	return gson.New(decoded), nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr, proxy string) (net.Conn, error) {
	var rawConn net.Conn
	var err error

	dialer := &net.Dialer{}

	if proxy != "" {
		proxyURL, parseErr := url.Parse(proxy)
		if parseErr == nil && (proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h") {
			var auth *xproxy.Auth
			if proxyURL.User != nil {
				pw, _ := proxyURL.User.Password()
				auth = &xproxy.Auth{User: proxyURL.User.Username(), Password: pw}
			}
			socksDialer, socksErr := xproxy.SOCKS5("tcp", proxyURL.Host, auth, dialer)
			if socksErr != nil {
				return nil, fmt.Errorf("socks5 dialer: %w", socksErr)
			}
			if cd, ok := socksDialer.(xproxy.ContextDialer); ok {
				rawConn, err = cd.DialContext(ctx, network, addr)
			} else {
				rawConn, err = socksDialer.Dial(network, addr)
			}
			if err != nil {
				return nil, fmt.Errorf("socks5 dial: %w", err)
			}
		}
	}

	if rawConn == nil {
		rawConn, err = dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName: host,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

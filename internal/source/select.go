package source

import (
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/dealposter/internal/config"
)

const (
	KindMock = "mock"
	KindRSS  = "rss"
	KindAPI  = "api"
)

// Select builds the configured source. A source whose settings are missing
// or invalid falls back to the mock source. The result is wrapped by Guard.
func Select(cfg config.SourceConfig, now func() time.Time) Source {
	var src Source

	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindRSS:
		if err := validFeeds(cfg.FeedURLs); err != "" {
			log.Printf("Warning: rss source disabled (%s), using mock data", err)
			break
		}
		src = NewRSSSource(cfg.FeedURLs, cfg.UserAgent, now)
	case KindAPI:
		if err := validEndpoint(cfg.APIURL, cfg.APIMethod); err != "" {
			log.Printf("Warning: api source disabled (%s), using mock data", err)
			break
		}
		client := NewHTTPClient(cfg.Timeout, cfg.UserAgent, cfg.APIToken)
		src = NewAPISource(cfg.APIURL, cfg.APIMethod, cfg.APIBody, client, now)
	case KindMock, "":
	default:
		log.Printf("Warning: unknown data source %q, using mock data", cfg.Kind)
	}

	if src == nil {
		src = NewMockSource(now)
	}
	return Guard(src, cfg.Timeout)
}

func validFeeds(feeds []string) string {
	if len(feeds) == 0 {
		return "no feed urls"
	}
	for _, f := range feeds {
		if !isHTTPURL(f) {
			return "invalid feed url " + f
		}
	}
	return ""
}

func validEndpoint(endpoint, method string) string {
	if !isHTTPURL(endpoint) {
		return "invalid endpoint url"
	}
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case "", "GET", "POST":
		return ""
	default:
		return "unsupported method " + method
	}
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

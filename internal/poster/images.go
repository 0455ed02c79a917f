package poster

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	_ "golang.org/x/image/webp"
)

const (
	defaultImageTimeout  = 5 * time.Second
	defaultMaxImageBytes = 8 << 20
	defaultImageCacheTTL = 24 * time.Hour
	imageCachePrefix     = "dealposter:image:"
)

var (
	ErrNoImage          = errors.New("no usable image url")
	ErrImageTooLarge    = errors.New("image exceeds size limit")
	ErrUnexpectedStatus = errors.New("unexpected image response status")
)

// ImageFetcher downloads raw image bytes.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPImageFetcher fetches images over HTTP with a size cap.
type HTTPImageFetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

func NewHTTPImageFetcher(timeout time.Duration, userAgent string) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = defaultImageTimeout
	}
	if userAgent == "" {
		userAgent = "DealPoster/1.0"
	}
	return &HTTPImageFetcher{
		client:    &http.Client{Timeout: timeout},
		maxBytes:  defaultMaxImageBytes,
		userAgent: userAgent,
	}
}

func (f *HTTPImageFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, ErrImageTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}

// CachedImageFetcher keeps fetched bytes in redis. Cache errors are logged
// and the underlying fetcher is used directly.
type CachedImageFetcher struct {
	next ImageFetcher
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedImageFetcher(next ImageFetcher, rdb *redis.Client, ttl time.Duration) *CachedImageFetcher {
	if ttl <= 0 {
		ttl = defaultImageCacheTTL
	}
	return &CachedImageFetcher{next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedImageFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	key := imageCacheKey(rawURL)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		log.Printf("Warning: image cache read failed: %v", err)
	}

	data, err = c.next.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("Warning: image cache write failed: %v", err)
	}
	return data, nil
}

func imageCacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return imageCachePrefix + hex.EncodeToString(sum[:])
}

var placeholderHosts = []string{
	"example.com",
	"example.org",
	"example.net",
	"placeholder.com",
	"via.placeholder.com",
	"placehold.co",
	"placehold.it",
	"dummyimage.com",
}

// IsPlaceholderURL reports whether rawURL points at a well-known
// placeholder or documentation domain.
func IsPlaceholderURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range placeholderHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// fetchableURL reports whether rawURL is an absolute http(s) URL worth fetching.
func fetchableURL(rawURL string) bool {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return !IsPlaceholderURL(rawURL)
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

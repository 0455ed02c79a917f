// Package source provides the deal feeds a report is built from.
package source

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/dealposter/internal/model"
)

// DefaultBrands is used when no target brands are configured.
var DefaultBrands = []string{"肯德基", "麦当劳", "德克士"}

// Source fetches today's deals for the given brands.
type Source interface {
	Name() string
	Fetch(ctx context.Context, brands []string) ([]model.DealRecord, error)
}

// FetchError is returned when a source cannot produce deals.
type FetchError struct {
	Source  string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s source: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s source: %s", e.Source, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

var validate = validator.New()

// maxTitleRunes matches the max tag on model.DealRecord.Title.
const maxTitleRunes = 80

// normalize repairs fields an upstream feed commonly gets wrong so the
// record survives validation: long titles are shortened and image links
// that are not absolute http(s) URLs are cleared.
func normalize(d model.DealRecord) model.DealRecord {
	if utf8.RuneCountInString(d.Title) > maxTitleRunes {
		d.Title = truncateRunes(d.Title, maxTitleRunes-1)
	}
	d.MainImageURL = strings.TrimSpace(d.MainImageURL)
	if !absoluteHTTPURL(d.MainImageURL) {
		d.MainImageURL = ""
	}
	return d
}

func absoluteHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Sanitize repairs recoverable fields and drops records that still fail
// field validation.
func Sanitize(records []model.DealRecord) []model.DealRecord {
	out := make([]model.DealRecord, 0, len(records))
	for _, r := range records {
		r = normalize(r)
		if err := validate.Struct(r); err != nil {
			log.Printf("Warning: dropping invalid deal %q from %s: %v", r.Title, r.DisplayBrand(), err)
			continue
		}
		out = append(out, r)
	}
	return out
}

// guarded applies a timeout and record validation to another source.
type guarded struct {
	next    Source
	timeout time.Duration
}

// Guard wraps s so every Fetch is bounded by timeout and returns only valid records.
func Guard(s Source, timeout time.Duration) Source {
	return &guarded{next: s, timeout: timeout}
}

func (g *guarded) Name() string {
	return g.next.Name()
}

func (g *guarded) Fetch(ctx context.Context, brands []string) ([]model.DealRecord, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	records, err := g.next.Fetch(ctx, brands)
	if err != nil {
		return nil, err
	}
	return Sanitize(records), nil
}

func targetBrands(brands []string) []string {
	if len(brands) == 0 {
		return DefaultBrands
	}
	return brands
}

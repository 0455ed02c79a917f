package source

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/dealposter/internal/model"
)

const maxConcurrentFeeds = 4

var pricePattern = regexp.MustCompile(`[¥￥]\s*(\d+(?:\.\d+)?)`)

// RSSSource reads deals from RSS/Atom feeds, such as deal aggregator
// category feeds. Items are kept when they mention a target brand and
// carry a price.
type RSSSource struct {
	feedURLs  []string
	userAgent string
	now       func() time.Time
}

func NewRSSSource(feedURLs []string, userAgent string, now func() time.Time) *RSSSource {
	if now == nil {
		now = time.Now
	}
	return &RSSSource{feedURLs: feedURLs, userAgent: userAgent, now: now}
}

func (s *RSSSource) Name() string {
	return "rss"
}

func (s *RSSSource) Fetch(ctx context.Context, brands []string) ([]model.DealRecord, error) {
	brands = targetBrands(brands)

	results := make([][]model.DealRecord, len(s.feedURLs))
	errs := make([]error, len(s.feedURLs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFeeds)
	for i, feedURL := range s.feedURLs {
		i, feedURL := i, feedURL
		g.Go(func() error {
			// A broken feed must not cancel its siblings, so errors are
			// collected rather than returned.
			results[i], errs[i] = s.fetchFeed(gCtx, feedURL, brands)
			return nil
		})
	}
	_ = g.Wait()

	var (
		deals  []model.DealRecord
		failed int
	)
	for i := range s.feedURLs {
		if errs[i] != nil {
			log.Printf("Warning: failed to fetch feed %s: %v", s.feedURLs[i], errs[i])
			failed++
			continue
		}
		deals = append(deals, results[i]...)
	}

	if failed > 0 && failed == len(s.feedURLs) {
		return nil, &FetchError{Source: s.Name(), Message: "all feeds failed", Cause: errs[0]}
	}
	return deals, nil
}

func (s *RSSSource) fetchFeed(ctx context.Context, feedURL string, brands []string) ([]model.DealRecord, error) {
	parser := gofeed.NewParser()
	if s.userAgent != "" {
		parser.UserAgent = s.userAgent
	}

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var deals []model.DealRecord
	for _, item := range feed.Items {
		if deal, ok := s.itemToDeal(item, brands); ok {
			deals = append(deals, deal)
		}
	}
	return deals, nil
}

func (s *RSSSource) itemToDeal(item *gofeed.Item, brands []string) (model.DealRecord, bool) {
	brand := matchBrand(item, brands)
	if brand == "" {
		return model.DealRecord{}, false
	}

	text := htmlToText(item.Description)
	prices := extractPrices(item.Title + " " + text)
	if len(prices) == 0 {
		return model.DealRecord{}, false
	}

	deal := model.DealRecord{
		Date:         s.itemDate(item),
		Brand:        brand,
		Title:        cleanTitle(item.Title),
		Desc:         truncateRunes(text, 40),
		Price:        prices[0],
		MainImageURL: itemImage(item),
	}
	if len(prices) > 1 && prices[1] > prices[0] {
		deal.OriginPrice = model.Float64(prices[1])
	}
	if len(item.Categories) > 0 {
		deal.Category = item.Categories[0]
	}
	return normalize(deal), true
}

func (s *RSSSource) itemDate(item *gofeed.Item) string {
	t := s.now()
	if item.PublishedParsed != nil {
		t = item.PublishedParsed.In(t.Location())
	}
	return t.Format("2006-01-02")
}

func matchBrand(item *gofeed.Item, brands []string) string {
	for _, brand := range brands {
		for _, c := range item.Categories {
			if strings.EqualFold(strings.TrimSpace(c), brand) {
				return brand
			}
		}
	}
	for _, brand := range brands {
		if strings.Contains(item.Title, brand) {
			return brand
		}
	}
	return ""
}

// extractPrices returns the prices in text in order of appearance.
func extractPrices(text string) []float64 {
	var prices []float64
	for _, m := range pricePattern.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			prices = append(prices, v)
		}
	}
	return prices
}

func htmlToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if item.Description == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Description))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return src
}

func cleanTitle(title string) string {
	title = pricePattern.ReplaceAllString(title, "")
	title = strings.Join(strings.Fields(title), " ")
	return truncateRunes(title, 40)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

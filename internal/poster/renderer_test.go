package poster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fogleman/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealposter/internal/model"
	"github.com/dealposter/internal/theme"
)

var fixedNow = time.Date(2026, 10, 15, 8, 0, 0, 0, time.FixedZone("CST", 8*3600))

type countingObserver struct {
	mu      sync.Mutex
	reasons []string
}

func (o *countingObserver) ImageFallback(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reasons = append(o.reasons, reason)
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	urls  []string
	data  []byte
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.urls = append(f.urls, rawURL)
	f.mu.Unlock()
	return f.data, f.err
}

func newTestRenderer(t *testing.T, opts Options) *Renderer {
	t.Helper()
	if opts.OutputDir == "" {
		opts.OutputDir = t.TempDir()
	}
	if opts.AssetsDir == "" {
		opts.AssetsDir = t.TempDir()
	}
	if opts.Fonts == nil {
		opts.Fonts = FallbackFonts()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = &fakeFetcher{err: errors.New("offline")}
	}
	opts.Now = func() time.Time { return fixedNow }
	return NewRenderer(opts)
}

func sampleDeal(brand, title string, price float64) model.DealRecord {
	return model.DealRecord{
		Date:        "2026-10-15",
		Brand:       brand,
		Title:       title,
		Category:    "早餐",
		Tag:         "限时",
		Activity:    "APP 下单立减",
		Desc:        "含饮品",
		Price:       price,
		OriginPrice: model.Float64(price + 10),
	}
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeFile(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestRender_ProducesCanvasSizedPNG(t *testing.T) {
	r := newTestRenderer(t, Options{})

	path, err := r.Render(context.Background(), model.PosterJob{
		Deals:     []model.DealRecord{sampleDeal("KFC", "Breakfast combo", 19.9)},
		Theme:     theme.Default,
		BrandName: "KFC",
		BestBrand: "KFC",
	})
	require.NoError(t, err)

	assert.Equal(t, "fastfood_deals_20261015_KFC.png", filepath.Base(path))
	img := decodeFile(t, path)
	assert.Equal(t, CanvasWidth, img.Bounds().Dx())
	assert.Equal(t, CanvasHeight, img.Bounds().Dy())

	header := rgbaAt(img, 5, 5)
	assert.Equal(t, color.RGBA{0xff, 0x6b, 0x3b, 0xff}, header)
	assert.Equal(t, color.RGBA{0xf7, 0xf7, 0xf7, 0xff}, rgbaAt(img, 10, 1000))
}

func TestRender_EmptyInput(t *testing.T) {
	r := newTestRenderer(t, Options{})

	_, err := r.Render(context.Background(), model.PosterJob{Theme: theme.Default})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestRender_BrandDefaultsToFirstDeal(t *testing.T) {
	r := newTestRenderer(t, Options{})

	path, err := r.Render(context.Background(), model.PosterJob{
		Deals: []model.DealRecord{sampleDeal("", "Family bucket", 59.9)},
		Theme: theme.Default,
	})
	require.NoError(t, err)
	assert.Equal(t, "fastfood_deals_20261015_其他品牌.png", filepath.Base(path))
}

func TestRender_UnreachableImageFallsBack(t *testing.T) {
	obs := &countingObserver{}
	r := newTestRenderer(t, Options{
		Fetcher:      NewHTTPImageFetcher(time.Second, ""),
		ImageTimeout: time.Second,
		Observer:     obs,
	})

	deal := sampleDeal("KFC", "Combo", 22.9)
	deal.MainImageURL = "http://127.0.0.1:1/missing.png"

	path, err := r.Render(context.Background(), model.PosterJob{
		Deals: []model.DealRecord{deal},
		Theme: theme.Default,
	})
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, []string{"fetch"}, obs.reasons)
}

func TestRender_RemoteImageIsDrawn(t *testing.T) {
	data := solidPNG(t, 400, 400, color.RGBA{0, 0, 255, 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	obs := &countingObserver{}
	r := newTestRenderer(t, Options{
		Fetcher:  NewHTTPImageFetcher(time.Second, ""),
		Observer: obs,
	})

	deal := sampleDeal("KFC", "Combo", 22.9)
	deal.MainImageURL = srv.URL + "/burger.png"

	path, err := r.Render(context.Background(), model.PosterJob{
		Deals: []model.DealRecord{deal},
		Theme: theme.Default,
	})
	require.NoError(t, err)
	assert.Empty(t, obs.reasons)

	slot := imageSlot(headerHeight + contentTop)
	center := image.Pt((slot.Min.X+slot.Max.X)/2, (slot.Min.Y+slot.Max.Y)/2)
	px := rgbaAt(decodeFile(t, path), center.X, center.Y)
	assert.Greater(t, px.B, uint8(240))
	assert.Less(t, px.R, uint8(16))
}

func TestRender_ImageURLIsTrimmedBeforeFetch(t *testing.T) {
	fetcher := &fakeFetcher{data: solidPNG(t, 50, 50, color.RGBA{0, 0, 255, 255})}
	obs := &countingObserver{}
	r := newTestRenderer(t, Options{Fetcher: fetcher, Observer: obs})

	deal := sampleDeal("KFC", "Combo", 22.9)
	deal.MainImageURL = "  https://img.deals.test/combo.png\n"

	_, err := r.Render(context.Background(), model.PosterJob{
		Deals: []model.DealRecord{deal},
		Theme: theme.Default,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.deals.test/combo.png"}, fetcher.urls)
	assert.Empty(t, obs.reasons)
}

func TestRender_PlaceholderURLIsNotFetched(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("should not be called")}
	obs := &countingObserver{}
	r := newTestRenderer(t, Options{Fetcher: fetcher, Observer: obs})

	deal := sampleDeal("KFC", "Combo", 22.9)
	deal.MainImageURL = "https://via.placeholder.com/300"

	_, err := r.Render(context.Background(), model.PosterJob{
		Deals: []model.DealRecord{deal},
		Theme: theme.Default,
	})
	require.NoError(t, err)
	assert.Zero(t, fetcher.calls)
	assert.Equal(t, []string{"missing"}, obs.reasons)
}

func TestRender_SameBrandSameDaySamePath(t *testing.T) {
	r := newTestRenderer(t, Options{})
	job := model.PosterJob{
		Deals:     []model.DealRecord{sampleDeal("麦当劳", "午餐精选堡+饮料", 22.9)},
		Theme:     theme.Default,
		BrandName: "麦当劳",
	}

	first, err := r.Render(context.Background(), job)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	entries, err := os.ReadDir(r.OutputDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRender_TruncatesToCapacity(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("offline")}
	r := newTestRenderer(t, Options{Fetcher: fetcher})

	deals := make([]model.DealRecord, 12)
	for i := range deals {
		deals[i] = sampleDeal("KFC", "Combo", float64(10+i))
		deals[i].MainImageURL = "https://img.deals.test/combo.png"
	}

	path, err := r.Render(context.Background(), model.PosterJob{Deals: deals, Theme: theme.Default})
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, CardCapacity(12), fetcher.calls)
}

func TestRender_ThemeBackground(t *testing.T) {
	assets := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(assets, "crazy_thursday.png"),
		solidPNG(t, 10, 10, color.RGBA{0, 255, 0, 255}),
		0o644,
	))
	r := newTestRenderer(t, Options{AssetsDir: assets})

	path, err := r.Render(context.Background(), model.PosterJob{
		Deals: []model.DealRecord{sampleDeal("KFC", "Combo", 22.9)},
		Theme: theme.Resolve(theme.CrazyThursday),
	})
	require.NoError(t, err)

	img := decodeFile(t, path)
	bg := rgbaAt(img, 10, 1000)
	assert.Greater(t, bg.G, uint8(250))
	assert.Less(t, bg.R, uint8(5))
	assert.Equal(t, color.RGBA{0xe4, 0x00, 0x2b, 0xff}, rgbaAt(img, 5, 5))
}

func TestRender_MissingBackgroundIsIgnored(t *testing.T) {
	r := newTestRenderer(t, Options{})

	path, err := r.Render(context.Background(), model.PosterJob{
		Deals: []model.DealRecord{sampleDeal("KFC", "Combo", 22.9)},
		Theme: theme.Resolve(theme.CrazyThursday),
	})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0xf7, 0xf7, 0xf7, 0xff}, rgbaAt(decodeFile(t, path), 10, 1000))
}

func TestRender_CanceledContext(t *testing.T) {
	r := newTestRenderer(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, model.PosterJob{
		Deals: []model.DealRecord{sampleDeal("KFC", "Combo", 22.9)},
		Theme: theme.Default,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

// originStrikeRow returns the pixel row the origin price strike passes
// through and the horizontal extent of the origin text on the first card.
func originStrikeRow(t *testing.T, origin float64) (row, x0, x1 int) {
	t.Helper()
	f, err := FallbackFonts().newFaces()
	require.NoError(t, err)
	defer f.Close()

	dc := gg.NewContext(1, 1)
	w, h := measure(dc, f.body, fmt.Sprintf("原价：¥%.1f", origin))

	cardTop := float64(headerHeight + contentTop)
	x := float64(imageSlot(headerHeight+contentTop).Max.X + textGap)
	y := cardTop + slotInsetY + 50 + 55
	return int(math.Floor(y + h/2)), int(math.Ceil(x)), int(math.Floor(x + w))
}

func countColor(img image.Image, row, x0, x1 int, want color.RGBA) int {
	n := 0
	for x := x0; x < x1; x++ {
		if rgbaAt(img, x, row) == want {
			n++
		}
	}
	return n
}

func TestRender_OriginStruckThroughOnlyWhenDiscounted(t *testing.T) {
	r := newTestRenderer(t, Options{})
	strike := color.RGBA{0xbb, 0xbb, 0xbb, 0xff}
	row, x0, x1 := originStrikeRow(t, 19.9)
	require.Greater(t, x1-x0, 4)

	render := func(price float64) image.Image {
		deal := sampleDeal("KFC", "Combo", price)
		deal.OriginPrice = model.Float64(19.9)
		path, err := r.Render(context.Background(), model.PosterJob{
			Deals: []model.DealRecord{deal},
			Theme: theme.Default,
		})
		require.NoError(t, err)
		return decodeFile(t, path)
	}

	discounted := render(9.9)
	span := x1 - x0 - 4
	assert.Greater(t, countColor(discounted, row, x0+2, x1-2, strike), span*9/10)

	for _, price := range []float64{19.9, 29.9} {
		plain := render(price)
		assert.Less(t, countColor(plain, row, x0+2, x1-2, strike), span/2, "price %.1f", price)
	}
}

func TestRender_BestBadgeOnlyOnBestBrand(t *testing.T) {
	r := newTestRenderer(t, Options{})
	f, err := FallbackFonts().newFaces()
	require.NoError(t, err)
	bodyH := textHeight(f.body)
	f.Close()

	badgeFill := color.RGBA{0xff, 0xdd, 0x55, 0xff}
	accent := color.RGBA{0xff, 0x6b, 0x3b, 0xff}
	white := color.RGBA{0xff, 0xff, 0xff, 0xff}

	cardTop := headerHeight + contentTop
	x := CanvasWidth - marginX - badgeInset - 16
	badgeY := cardTop + badgeInset + 4
	tagY := cardTop + slotInsetY + 3
	movedTagY := int(float64(cardTop+badgeInset)+bodyH+2*10+8) + 4

	render := func(best string) image.Image {
		path, err := r.Render(context.Background(), model.PosterJob{
			Deals:     []model.DealRecord{sampleDeal("KFC", "Combo", 22.9)},
			Theme:     theme.Default,
			BrandName: "KFC",
			BestBrand: best,
		})
		require.NoError(t, err)
		return decodeFile(t, path)
	}

	best := render("KFC")
	assert.Equal(t, badgeFill, rgbaAt(best, x, badgeY))
	assert.Equal(t, badgeFill, rgbaAt(best, x, tagY))
	assert.Equal(t, accent, rgbaAt(best, x, movedTagY))

	for _, other := range []string{"麦当劳", ""} {
		img := render(other)
		assert.Equal(t, white, rgbaAt(img, x, badgeY), "best brand %q", other)
		assert.Equal(t, accent, rgbaAt(img, x, tagY), "best brand %q", other)
	}
}

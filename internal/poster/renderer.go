// Package poster lays out a brand's deals on a fixed-size canvas and saves
// the result as a PNG.
package poster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fogleman/gg"

	"github.com/dealposter/internal/model"
)

// ErrEmptyInput is returned when a job carries no deals.
var ErrEmptyInput = errors.New("poster: no deals to render")

const (
	DefaultOutputDir  = "data/fastfood_deals"
	DefaultAssetsDir  = "data/fastfood_deals/backgrounds"
	DefaultFilePrefix = "fastfood_deals"
)

// Observer is notified about degraded output.
type Observer interface {
	ImageFallback(reason string)
}

type Options struct {
	OutputDir    string
	AssetsDir    string
	FilePrefix   string
	ImageTimeout time.Duration
	Fetcher      ImageFetcher
	Fonts        *FontSet
	Observer     Observer
	Now          func() time.Time
}

// Renderer draws posters. It holds no per-render state and is safe for
// concurrent use.
type Renderer struct {
	outputDir    string
	assetsDir    string
	prefix       string
	imageTimeout time.Duration
	fetcher      ImageFetcher
	fonts        *FontSet
	observer     Observer
	now          func() time.Time
}

func NewRenderer(opts Options) *Renderer {
	r := &Renderer{
		outputDir:    opts.OutputDir,
		assetsDir:    opts.AssetsDir,
		prefix:       opts.FilePrefix,
		imageTimeout: opts.ImageTimeout,
		fetcher:      opts.Fetcher,
		fonts:        opts.Fonts,
		observer:     opts.Observer,
		now:          opts.Now,
	}
	if r.outputDir == "" {
		r.outputDir = DefaultOutputDir
	}
	if r.assetsDir == "" {
		r.assetsDir = DefaultAssetsDir
	}
	if r.prefix == "" {
		r.prefix = DefaultFilePrefix
	}
	if r.imageTimeout <= 0 {
		r.imageTimeout = defaultImageTimeout
	}
	if r.fetcher == nil {
		r.fetcher = NewHTTPImageFetcher(r.imageTimeout, "")
	}
	if r.fonts == nil {
		r.fonts = DefaultFonts()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// OutputDir returns the directory posters are written to.
func (r *Renderer) OutputDir() string {
	return r.outputDir
}

// Render draws job and returns the path of the written PNG. Rendering the
// same brand twice on one day overwrites the same file.
func (r *Renderer) Render(ctx context.Context, job model.PosterJob) (string, error) {
	if len(job.Deals) == 0 {
		return "", ErrEmptyInput
	}

	brand := strings.TrimSpace(job.BrandName)
	if brand == "" {
		brand = job.Deals[0].DisplayBrand()
	}
	now := r.now()

	f, err := r.fonts.newFaces()
	if err != nil {
		return "", fmt.Errorf("failed to prepare fonts: %w", err)
	}
	defer f.Close()

	dc := gg.NewContext(CanvasWidth, CanvasHeight)
	dc.SetHexColor(backgroundColor)
	dc.Clear()
	r.drawBackground(dc, job.Theme)

	drawHeader(dc, f, job.Theme, brand, now.Format("2006-01-02"))

	y := headerHeight + contentTop
	for i, d := range job.Deals {
		if y+cardHeight+overflowMargin > CanvasHeight {
			log.Printf("Poster for %s truncated: %d of %d deals shown", brand, i, len(job.Deals))
			break
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		r.drawCard(ctx, dc, f, job, d, y)
		y += cardHeight + cardGap
	}

	drawFooter(dc, f)

	return r.save(dc, brand, now)
}

func (r *Renderer) drawBackground(dc *gg.Context, theme model.ThemeConfig) {
	name := strings.TrimSpace(theme.BackgroundImage)
	if name == "" {
		return
	}
	path := filepath.Join(r.assetsDir, name)
	if _, err := os.Stat(path); err != nil {
		return
	}
	img, err := gg.LoadImage(path)
	if err != nil {
		log.Printf("Warning: failed to load background %s: %v", path, err)
		return
	}
	drawStretched(dc, img)
}

func (r *Renderer) drawCard(ctx context.Context, dc *gg.Context, f *faces, job model.PosterJob, d model.DealRecord, y int) {
	top := float64(y)

	dc.SetHexColor(cardColor)
	dc.DrawRoundedRectangle(marginX, top, CanvasWidth-2*marginX, cardHeight, cardRadius)
	dc.Fill()

	slot := imageSlot(y)
	dc.DrawRoundedRectangle(float64(slot.Min.X), float64(slot.Min.Y), float64(slot.Dx()), float64(slot.Dy()), slotRadius)
	dc.SetHexColor(job.Theme.PlaceholderFill)
	dc.FillPreserve()
	dc.SetHexColor(job.Theme.PlaceholderOutline)
	dc.SetLineWidth(3)
	dc.Stroke()

	if err := r.drawCardImage(ctx, dc, d, slot); err != nil {
		cx := float64(slot.Min.X+slot.Max.X) / 2
		cy := float64(slot.Min.Y+slot.Max.Y) / 2
		drawCentered(dc, f.price, shortBrand(d.Brand), cx, cy, job.Theme.Accent)
	}

	drawCardText(dc, f, job, d, slot, top)
}

// drawCardImage draws the deal's product image into slot. Any error leaves
// the slot untouched for the initials fallback.
func (r *Renderer) drawCardImage(ctx context.Context, dc *gg.Context, d model.DealRecord, slot image.Rectangle) error {
	rawURL := strings.TrimSpace(d.MainImageURL)
	if !fetchableURL(rawURL) {
		r.fallback("missing")
		return ErrNoImage
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.imageTimeout)
	defer cancel()

	data, err := r.fetcher.Fetch(fetchCtx, rawURL)
	if err != nil {
		log.Printf("Warning: failed to fetch image for %s: %v", d.DisplayBrand(), err)
		r.fallback("fetch")
		return err
	}
	img, err := decodeImage(data)
	if err != nil {
		log.Printf("Warning: failed to decode image for %s: %v", d.DisplayBrand(), err)
		r.fallback("decode")
		return err
	}

	drawFitted(dc, img, slot)
	return nil
}

func (r *Renderer) fallback(reason string) {
	if r.observer != nil {
		r.observer.ImageFallback(reason)
	}
}

// save writes the canvas through a temp file so readers never see a
// partially written poster.
func (r *Renderer) save(dc *gg.Context, brand string, now time.Time) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := OutputPath(r.outputDir, r.prefix, brand, now)

	tmp, err := os.CreateTemp(r.outputDir, ".poster-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := png.Encode(tmp, dc.Image()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to encode poster: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to move poster into place: %w", err)
	}
	return path, nil
}

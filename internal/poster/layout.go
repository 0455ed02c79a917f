package poster

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/dealposter/internal/model"
)

// Canvas geometry, in pixels.
const (
	CanvasWidth  = 1080
	CanvasHeight = 1920

	headerHeight   = 260
	contentTop     = 40
	cardHeight     = 260
	cardGap        = 30
	overflowMargin = 40
	marginX        = 80
	cardRadius     = 32

	slotOffsetX = 30
	slotInsetY  = 40
	slotWidth   = 200
	slotRadius  = 24
	imageInset  = 8
	textGap     = 40

	badgeInset = 26
	footerGap  = 80
)

const (
	backgroundColor = "#f7f7f7"
	cardColor       = "#ffffff"
	headerTextColor = "#333333"
	priceColor      = "#ff3b30"
	originColor     = "#999999"
	strikeColor     = "#bbbbbb"
	descColor       = "#555555"
	footerColor     = "#999999"

	bestBadgeText = "今日最划算"
	footerText    = "提示：以上价格与活动以各品牌官方实际为准，仅供参考。"
	defaultTitle  = "今日主推套餐"
	defaultShort  = "快餐"
)

// CardCapacity returns how many of n deal cards fit on one canvas.
func CardCapacity(n int) int {
	count := 0
	for y := headerHeight + contentTop; count < n; y += cardHeight + cardGap {
		if y+cardHeight+overflowMargin > CanvasHeight {
			break
		}
		count++
	}
	return count
}

// textHeight is the ascent plus descent of face.
func textHeight(face font.Face) float64 {
	m := face.Metrics()
	return float64(m.Ascent+m.Descent) / 64
}

func measure(dc *gg.Context, face font.Face, s string) (float64, float64) {
	dc.SetFontFace(face)
	w, _ := dc.MeasureString(s)
	return w, textHeight(face)
}

// drawText draws s with its top-left corner at (x, y).
func drawText(dc *gg.Context, face font.Face, s string, x, y float64, color string) {
	dc.SetFontFace(face)
	dc.SetHexColor(color)
	dc.DrawString(s, x, y+float64(face.Metrics().Ascent)/64)
}

// drawCentered centers s on (cx, cy) using its measured extents.
func drawCentered(dc *gg.Context, face font.Face, s string, cx, cy float64, color string) {
	w, h := measure(dc, face, s)
	drawText(dc, face, s, cx-w/2, cy-h/2, color)
}

func drawHeader(dc *gg.Context, f *faces, theme model.ThemeConfig, brand, date string) {
	dc.SetHexColor(theme.HeaderColor)
	dc.DrawRectangle(0, 0, CanvasWidth, headerHeight)
	dc.Fill()

	title := fmt.Sprintf("%s · %s", brand, theme.TitleTemplate)
	drawCentered(dc, f.title, title, CanvasWidth/2, 90, "#ffffff")
	drawCentered(dc, f.subtitle, "日期："+date, CanvasWidth/2, 170, theme.HeaderSubtitleColor)
}

func drawFooter(dc *gg.Context, f *faces) {
	drawCentered(dc, f.body, footerText, CanvasWidth/2, CanvasHeight-footerGap, footerColor)
}

// imageSlot is the rounded placeholder area of a card whose top edge is at y.
func imageSlot(y int) image.Rectangle {
	x0 := marginX + slotOffsetX
	return image.Rect(x0, y+slotInsetY, x0+slotWidth, y+cardHeight-slotInsetY)
}

// fitRect places a srcW x srcH image inside slot inset by imageInset,
// keeping aspect ratio and never upscaling.
func fitRect(srcW, srcH int, slot image.Rectangle) image.Rectangle {
	inner := slot.Inset(imageInset)
	if srcW <= 0 || srcH <= 0 {
		return image.Rectangle{Min: inner.Min, Max: inner.Min}
	}
	scale := math.Min(float64(inner.Dx())/float64(srcW), float64(inner.Dy())/float64(srcH))
	scale = math.Min(scale, 1)

	w := max(1, int(math.Round(float64(srcW)*scale)))
	h := max(1, int(math.Round(float64(srcH)*scale)))
	x := inner.Min.X + (inner.Dx()-w)/2
	y := inner.Min.Y + (inner.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func drawFitted(dc *gg.Context, img image.Image, slot image.Rectangle) {
	dst := fitRect(img.Bounds().Dx(), img.Bounds().Dy(), slot)
	scaled := image.NewRGBA(image.Rect(0, 0, dst.Dx(), dst.Dy()))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	dc.DrawImage(scaled, dst.Min.X, dst.Min.Y)
}

func drawStretched(dc *gg.Context, img image.Image) {
	scaled := image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	dc.DrawImage(scaled, 0, 0)
}

// shortBrand is the initials fallback shown when a card has no image.
func shortBrand(brand string) string {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return defaultShort
	}
	runes := []rune(brand)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes)
}

func cardHeaderLine(d model.DealRecord) string {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = defaultTitle
	}
	if category := strings.TrimSpace(d.Category); category != "" {
		return category + " | " + title
	}
	return d.DisplayBrand() + " | " + title
}

// drawBestBadge draws the highlight badge in the top-right corner of a card
// and returns its bottom edge.
func drawBestBadge(dc *gg.Context, f *faces, theme model.ThemeConfig, cardTop float64) float64 {
	const padX, padY = 18, 10
	w, h := measure(dc, f.body, bestBadgeText)

	right := float64(CanvasWidth - marginX - badgeInset)
	left := right - w - 2*padX
	top := cardTop + badgeInset
	bottom := top + h + 2*padY

	dc.SetHexColor(theme.BadgeFill)
	dc.DrawRoundedRectangle(left, top, right-left, bottom-top, 18)
	dc.Fill()
	drawText(dc, f.body, bestBadgeText, left+padX, top+padY, theme.BadgeText)
	return bottom
}

// drawTagBadge right-aligns the tag to the card edge without crossing minLeft.
func drawTagBadge(dc *gg.Context, f *faces, theme model.ThemeConfig, tag string, minLeft, top float64) {
	const padX, padY = 14, 6
	w, h := measure(dc, f.body, tag)

	right := float64(CanvasWidth - marginX - badgeInset)
	left := math.Max(minLeft, right-w-2*padX)

	dc.SetHexColor(theme.Accent)
	dc.DrawRoundedRectangle(left, top, w+2*padX, h+2*padY, 14)
	dc.Fill()
	drawText(dc, f.body, tag, left+padX, top+padY, "#ffffff")
}

// drawCardText renders the text column of a card.
func drawCardText(dc *gg.Context, f *faces, job model.PosterJob, d model.DealRecord, slot image.Rectangle, cardTop float64) {
	x := float64(slot.Max.X + textGap)
	y := cardTop + slotInsetY

	header := cardHeaderLine(d)
	drawText(dc, f.subtitle, header, x, y, headerTextColor)
	headerW, _ := measure(dc, f.subtitle, header)

	tagTop := y
	if job.BestBrand != "" && d.DisplayBrand() == job.BestBrand {
		tagTop = drawBestBadge(dc, f, job.Theme, cardTop) + 8
	}
	if tag := strings.TrimSpace(d.Tag); tag != "" {
		drawTagBadge(dc, f, job.Theme, tag, x+headerW+16, tagTop)
	}
	y += 50

	drawText(dc, f.priceBig, fmt.Sprintf("到手价：¥%.1f", d.Price), x, y, priceColor)
	y += 55

	if d.OriginPrice != nil {
		origin := fmt.Sprintf("原价：¥%.1f", *d.OriginPrice)
		drawText(dc, f.body, origin, x, y, originColor)
		// Only a real discount is struck through.
		if d.HasDiscount() {
			w, h := measure(dc, f.body, origin)
			dc.SetHexColor(strikeColor)
			dc.SetLineWidth(2)
			dc.DrawLine(x, y+h/2, x+w, y+h/2)
			dc.Stroke()
		}
		y += 40
	}

	if activity := strings.TrimSpace(d.Activity); activity != "" {
		drawText(dc, f.body, activity, x, y, job.Theme.Accent)
		y += 40
	}

	if desc := strings.TrimSpace(d.Desc); desc != "" {
		drawText(dc, f.body, desc, x, y, descColor)
	}
}

package poster

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dealposter/internal/model"
)

func TestCardCapacity(t *testing.T) {
	assert.Equal(t, 0, CardCapacity(0))
	assert.Equal(t, 3, CardCapacity(3))
	assert.Equal(t, 5, CardCapacity(5))
	assert.Equal(t, 5, CardCapacity(12))
}

func TestFitRect(t *testing.T) {
	slot := image.Rect(110, 340, 310, 520)
	inner := slot.Inset(imageInset)

	t.Run("large image is downscaled and centered", func(t *testing.T) {
		r := fitRect(800, 400, slot)
		assert.Equal(t, inner.Dx(), r.Dx())
		assert.Equal(t, 92, r.Dy())
		assert.True(t, r.In(inner))
		assert.Equal(t, inner.Min.X, r.Min.X)
	})

	t.Run("small image is never upscaled", func(t *testing.T) {
		r := fitRect(50, 40, slot)
		assert.Equal(t, 50, r.Dx())
		assert.Equal(t, 40, r.Dy())
		assert.Equal(t, inner.Min.X+(inner.Dx()-50)/2, r.Min.X)
		assert.Equal(t, inner.Min.Y+(inner.Dy()-40)/2, r.Min.Y)
	})
}

func TestShortBrand(t *testing.T) {
	assert.Equal(t, "肯德", shortBrand("肯德基"))
	assert.Equal(t, "KF", shortBrand("KFC"))
	assert.Equal(t, "快餐", shortBrand("  "))
	assert.Equal(t, "A", shortBrand("A"))
}

func TestCardHeaderLine(t *testing.T) {
	assert.Equal(t, "早餐 | 双人套餐", cardHeaderLine(model.DealRecord{Category: "早餐", Title: "双人套餐"}))
	assert.Equal(t, "麦当劳 | 今日主推套餐", cardHeaderLine(model.DealRecord{Brand: "麦当劳"}))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "肯德基", Slug("肯德基"))
	assert.Equal(t, "BurgerKing", Slug("Burger King!"))
	assert.Equal(t, "brand", Slug(" - "))
}

func TestOutputPath(t *testing.T) {
	day := time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "out/fastfood_deals_20261015_德克士.png", OutputPath("out", "fastfood_deals", "德克士", day))
}

package source

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dealposter/internal/model"
)

type mockPreset struct {
	title          string
	originalPrice  float64
	finalPrice     float64
	recommendation string
}

var mockPresets = []mockPreset{
	{"早餐超值双人套餐", 32.0, 19.9, "适合两人早餐搭配，性价比高。"},
	{"午餐精选堡+饮料", 36.0, 22.9, "工作日午餐刚刚好，饱腹又不贵。"},
	{"家庭分享桶", 89.0, 59.9, "三四人聚餐首选，适合聚会分享。"},
}

// MockSource returns one canned deal per brand, cycling through a few presets.
type MockSource struct {
	now func() time.Time
}

func NewMockSource(now func() time.Time) *MockSource {
	if now == nil {
		now = time.Now
	}
	return &MockSource{now: now}
}

func (s *MockSource) Name() string {
	return "mock"
}

func (s *MockSource) Fetch(ctx context.Context, brands []string) ([]model.DealRecord, error) {
	today := s.now().Format("2006-01-02")
	brands = targetBrands(brands)

	deals := make([]model.DealRecord, 0, len(brands))
	for i, brand := range brands {
		p := mockPresets[i%len(mockPresets)]
		discount := math.Round((1-p.finalPrice/p.originalPrice)*1000) / 10

		deals = append(deals, model.DealRecord{
			Date:         today,
			Brand:        brand,
			Title:        p.title,
			Activity:     fmt.Sprintf("优惠力度：约 %.1f%%", discount),
			Desc:         "建议：" + p.recommendation,
			Price:        p.finalPrice,
			OriginPrice:  model.Float64(p.originalPrice),
			MainImageURL: fmt.Sprintf("https://example.com/%s/deal_%d.jpg", brand, i),
		})
	}
	return deals, nil
}

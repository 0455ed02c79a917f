package model

import "strings"

// DefaultBrandLabel is used for records whose brand is missing or blank.
const DefaultBrandLabel = "其他品牌"

// DealRecord is one monitored offer, already translated into the canonical
// shape by a data source.
type DealRecord struct {
	Date         string   `json:"date"`
	Brand        string   `json:"brand"`
	Title        string   `json:"title" validate:"max=80"`
	Category     string   `json:"category,omitempty"`
	Tag          string   `json:"tag,omitempty"`
	Activity     string   `json:"activity,omitempty"`
	Desc         string   `json:"desc,omitempty"`
	Price        float64  `json:"price" validate:"gte=0"`
	OriginPrice  *float64 `json:"origin_price,omitempty" validate:"omitempty,gte=0"`
	MainImageURL string   `json:"main_image_url,omitempty" validate:"omitempty,url"`
}

// DisplayBrand returns the trimmed brand, or DefaultBrandLabel when empty.
func (d DealRecord) DisplayBrand() string {
	if b := strings.TrimSpace(d.Brand); b != "" {
		return b
	}
	return DefaultBrandLabel
}

// HasDiscount reports whether an original price above the current price is known.
func (d DealRecord) HasDiscount() bool {
	return d.OriginPrice != nil && *d.OriginPrice > d.Price
}

// Float64 returns a pointer to v, for optional price fields.
func Float64(v float64) *float64 {
	return &v
}

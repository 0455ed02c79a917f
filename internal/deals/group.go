// Package deals groups normalized deal records by brand for poster rendering.
package deals

import (
	"strings"

	"github.com/dealposter/internal/model"
)

// Group is the ordered set of deals of one brand.
type Group struct {
	Brand string
	Deals []model.DealRecord
}

// GroupByBrand partitions deals by brand. Brands in preferredOrder come
// first, in that order, followed by the remaining brands in first-seen
// order. Each group keeps the original relative order of its deals and is
// never empty.
func GroupByBrand(records []model.DealRecord, preferredOrder []string) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, d := range records {
		brand := d.DisplayBrand()
		i, ok := index[brand]
		if !ok {
			i = len(groups)
			index[brand] = i
			groups = append(groups, Group{Brand: brand})
		}
		groups[i].Deals = append(groups[i].Deals, d)
	}

	ordered := make([]Group, 0, len(groups))
	taken := make([]bool, len(groups))

	for _, b := range preferredOrder {
		i, ok := index[strings.TrimSpace(b)]
		if !ok || taken[i] {
			continue
		}
		taken[i] = true
		ordered = append(ordered, groups[i])
	}
	for i, g := range groups {
		if !taken[i] {
			ordered = append(ordered, g)
		}
	}

	return ordered
}

// Cheapest returns the deal with the lowest current price. Ties keep the
// earliest record.
func Cheapest(records []model.DealRecord) (model.DealRecord, bool) {
	if len(records) == 0 {
		return model.DealRecord{}, false
	}
	best := records[0]
	for _, d := range records[1:] {
		if d.Price < best.Price {
			best = d
		}
	}
	return best, true
}

// BestBrand returns the display brand of the cheapest deal, or "".
func BestBrand(records []model.DealRecord) string {
	d, ok := Cheapest(records)
	if !ok {
		return ""
	}
	return d.DisplayBrand()
}

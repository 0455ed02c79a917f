package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dealposter/internal/model"
)

// Field spellings accepted from upstream APIs, in order of preference.
var (
	brandKeys    = []string{"brand", "brand_name", "shop"}
	titleKeys    = []string{"title", "name", "item_name"}
	priceKeys    = []string{"final_price", "price", "current_price", "deal_price"}
	originKeys   = []string{"original_price", "origin_price", "list_price"}
	imageKeys    = []string{"main_image_url", "image", "img", "image_url", "pic"}
	descKeys     = []string{"recommendation", "desc", "description"}
	activityKeys = []string{"activity", "promotion", "discount_text"}
	categoryKeys = []string{"category", "meal"}
	tagKeys      = []string{"tag", "label"}
	dateKeys     = []string{"date", "day"}
)

// APISource reads deals from a JSON HTTP endpoint. The response may be an
// array of deals or an object wrapping one under "deals", "data" or "items".
type APISource struct {
	endpoint string
	method   string
	body     string
	client   *HTTPClient
	now      func() time.Time
}

func NewAPISource(endpoint, method, body string, client *HTTPClient, now func() time.Time) *APISource {
	if now == nil {
		now = time.Now
	}
	return &APISource{
		endpoint: endpoint,
		method:   strings.ToUpper(strings.TrimSpace(method)),
		body:     body,
		client:   client,
		now:      now,
	}
}

func (s *APISource) Name() string {
	return "api"
}

func (s *APISource) Fetch(ctx context.Context, brands []string) ([]model.DealRecord, error) {
	var (
		data []byte
		err  error
	)
	if s.method == "POST" {
		data, err = s.client.PostJSON(ctx, s.endpoint, strings.NewReader(s.requestBody(brands)))
	} else {
		data, err = s.client.GetJSON(ctx, s.requestURL(brands))
	}
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Message: "request failed", Cause: err}
	}

	items, err := decodeItems(data)
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Message: "invalid response", Cause: err}
	}

	today := s.now().Format("2006-01-02")
	deals := make([]model.DealRecord, 0, len(items))
	for _, item := range items {
		if deal, ok := itemToDeal(item, today); ok {
			deals = append(deals, deal)
		}
	}
	return deals, nil
}

func (s *APISource) requestURL(brands []string) string {
	if len(brands) == 0 {
		return s.endpoint
	}
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return s.endpoint
	}
	q := u.Query()
	q.Set("brands", strings.Join(brands, ","))
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *APISource) requestBody(brands []string) string {
	if s.body != "" {
		return s.body
	}
	body, _ := json.Marshal(map[string][]string{"brands": brands})
	return string(body)
}

func decodeItems(data []byte) ([]map[string]any, error) {
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range []string{"deals", "data", "items"} {
		raw, ok := wrapper[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		return items, nil
	}
	return nil, fmt.Errorf("no deal list in response")
}

// itemToDeal maps one upstream object to a DealRecord. Items without a
// usable price are skipped.
func itemToDeal(item map[string]any, today string) (model.DealRecord, bool) {
	price, ok := pickFloat(item, priceKeys)
	if !ok {
		return model.DealRecord{}, false
	}

	deal := model.DealRecord{
		Date:         pickString(item, dateKeys),
		Brand:        pickString(item, brandKeys),
		Title:        pickString(item, titleKeys),
		Category:     pickString(item, categoryKeys),
		Tag:          pickString(item, tagKeys),
		Activity:     pickString(item, activityKeys),
		Desc:         pickString(item, descKeys),
		Price:        price,
		MainImageURL: pickString(item, imageKeys),
	}
	if deal.Date == "" {
		deal.Date = today
	}
	if origin, ok := pickFloat(item, originKeys); ok {
		deal.OriginPrice = model.Float64(origin)
	}
	return normalize(deal), true
}

func pickString(item map[string]any, keys []string) string {
	for _, key := range keys {
		switch v := item[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func pickFloat(item map[string]any, keys []string) (float64, bool) {
	for _, key := range keys {
		switch v := item[key].(type) {
		case float64:
			return v, true
		case string:
			s := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(v), "¥￥"))
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Package theme maps promotion keys to poster color schemes and decides which
// promotion applies on a given day.
package theme

import (
	"time"

	"github.com/dealposter/internal/model"
)

const CrazyThursday = "crazy_thursday"

// Default is used when no promotion applies or the key is unknown.
var Default = model.ThemeConfig{
	Key:                 "default",
	HeaderColor:         "#ff6b3b",
	HeaderSubtitleColor: "#ffe7d9",
	TitleTemplate:       "今日快餐比价早报",
	Accent:              "#ff6b3b",
	PlaceholderFill:     "#ffe9dd",
	PlaceholderOutline:  "#ffb89b",
	BadgeFill:           "#ffdd55",
	BadgeText:           "#7a4b00",
}

var registered = map[string]model.ThemeConfig{
	CrazyThursday: {
		Key:                 CrazyThursday,
		HeaderColor:         "#e4002b",
		HeaderSubtitleColor: "#ffd700",
		TitleTemplate:       "疯狂星期四 · 今日快餐比价早报",
		Accent:              "#e4002b",
		PlaceholderFill:     "#ffe6e6",
		PlaceholderOutline:  "#e4002b",
		BadgeFill:           "#ffd700",
		BadgeText:           "#5c3317",
		BackgroundImage:     "crazy_thursday.png",
	},
}

// Resolve returns the theme registered under key, or Default.
func Resolve(key string) model.ThemeConfig {
	if cfg, ok := registered[key]; ok {
		return cfg
	}
	return Default
}

// Keys returns the registered theme keys.
func Keys() []string {
	keys := make([]string, 0, len(registered))
	for k := range registered {
		keys = append(keys, k)
	}
	return keys
}

// Selector picks the theme key that applies at a point in time. An empty
// key means "no promotion".
type Selector interface {
	ThemeFor(t time.Time) string
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(t time.Time) string

func (f SelectorFunc) ThemeFor(t time.Time) string {
	return f(t)
}

// WeekdaySelector maps weekdays to theme keys.
type WeekdaySelector map[time.Weekday]string

// DefaultSelector runs Crazy Thursday on Thursdays and nothing else.
func DefaultSelector() WeekdaySelector {
	return WeekdaySelector{time.Thursday: CrazyThursday}
}

func (s WeekdaySelector) ThemeFor(t time.Time) string {
	return s[t.Weekday()]
}

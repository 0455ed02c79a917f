package model

// ThemeConfig is an immutable set of poster rendering parameters.
type ThemeConfig struct {
	Key                 string `json:"key" yaml:"key"`
	HeaderColor         string `json:"header_color" yaml:"header_color"`
	HeaderSubtitleColor string `json:"header_subtitle_color" yaml:"header_subtitle_color"`
	TitleTemplate       string `json:"title_template" yaml:"title_template"`
	Accent              string `json:"accent" yaml:"accent"`
	PlaceholderFill     string `json:"placeholder_fill" yaml:"placeholder_fill"`
	PlaceholderOutline  string `json:"placeholder_outline" yaml:"placeholder_outline"`
	BadgeFill           string `json:"badge_fill" yaml:"badge_fill"`
	BadgeText           string `json:"badge_text" yaml:"badge_text"`
	BackgroundImage     string `json:"background_image,omitempty" yaml:"background_image"`
}

// PosterJob is one rendering request: the deals of a single brand group.
// It is built per group inside a report run and never shared.
type PosterJob struct {
	Deals     []DealRecord
	Theme     ThemeConfig
	BrandName string

	// BestBrand is the brand of the cheapest deal across the whole run,
	// computed before grouping. Empty disables the highlight.
	BestBrand string
}

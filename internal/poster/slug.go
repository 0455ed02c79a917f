package poster

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Slug keeps unicode letters and digits of name, so CJK brand names survive.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "brand"
	}
	return b.String()
}

// OutputPath is the deterministic poster location for a brand on a day.
func OutputPath(dir, prefix, brand string, day time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.png", prefix, day.Format("20060102"), Slug(brand))
	return filepath.Join(dir, name)
}

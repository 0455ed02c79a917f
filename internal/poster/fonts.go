package poster

import (
	"fmt"
	"log"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Common CJK font locations on Windows, Linux servers/containers and macOS.
var regularFontCandidates = []string{
	`C:\Windows\Fonts\msyh.ttc`,
	`C:\Windows\Fonts\simhei.ttf`,
	`C:\Windows\Fonts\simfang.ttf`,
	`C:\Windows\Fonts\simkai.ttf`,
	"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-zenhei.ttc",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/System/Library/Fonts/PingFang.ttc",
}

var boldFontCandidates = []string{
	`C:\Windows\Fonts\msyhbd.ttc`,
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Bold.ttc",
	"/usr/share/fonts/truetype/noto/NotoSansCJK-Bold.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Bold.ttc",
}

// FontSet holds the parsed regular and bold fonts used for a poster.
// Parsed fonts are read-only and shared; faces are created per render.
type FontSet struct {
	Regular     *opentype.Font
	Bold        *opentype.Font
	RegularPath string
	BoldPath    string
}

var (
	defaultFontsOnce sync.Once
	defaultFonts     *FontSet
)

// DefaultFonts loads the first usable system CJK fonts once per process,
// falling back to the embedded Go fonts.
func DefaultFonts() *FontSet {
	defaultFontsOnce.Do(func() {
		defaultFonts = LoadFonts(nil)
	})
	return defaultFonts
}

// LoadFonts tries extra paths before the built-in candidates. It never fails:
// when no system font can be parsed the embedded Go fonts are used, which
// lack CJK glyphs.
func LoadFonts(extra []string) *FontSet {
	fs := &FontSet{}

	fs.Regular, fs.RegularPath = firstLoadable(append(append([]string{}, extra...), regularFontCandidates...))
	fs.Bold, fs.BoldPath = firstLoadable(boldFontCandidates)

	if fs.Regular == nil {
		log.Println("Warning: no CJK font found, falling back to embedded Go fonts")
		fallback := FallbackFonts()
		fs.Regular, fs.RegularPath = fallback.Regular, fallback.RegularPath
		if fs.Bold == nil {
			fs.Bold, fs.BoldPath = fallback.Bold, fallback.BoldPath
		}
	}
	if fs.Bold == nil {
		// A CJK regular face beats a bold face without CJK glyphs.
		fs.Bold, fs.BoldPath = fs.Regular, fs.RegularPath
	}

	return fs
}

// FallbackFonts returns the embedded Go regular/bold fonts.
func FallbackFonts() *FontSet {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("parse embedded goregular: %v", err))
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		panic(fmt.Sprintf("parse embedded gobold: %v", err))
	}
	return &FontSet{
		Regular:     regular,
		Bold:        bold,
		RegularPath: "embedded:goregular",
		BoldPath:    "embedded:gobold",
	}
}

func firstLoadable(paths []string) (*opentype.Font, string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		f, err := loadFontFile(path)
		if err != nil {
			log.Printf("Warning: failed to load font %s: %v", path, err)
			continue
		}
		return f, path
	}
	return nil, ""
}

func loadFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if f, err := opentype.Parse(data); err == nil {
		return f, nil
	}
	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse font collection: %w", err)
	}
	if coll.NumFonts() == 0 {
		return nil, fmt.Errorf("empty font collection")
	}
	return coll.Font(0)
}

// face creates a new face at size pixels. Faces are not safe for
// concurrent use.
func (fs *FontSet) face(size float64, bold bool) (font.Face, error) {
	f := fs.Regular
	if bold {
		f = fs.Bold
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// faces is the set of sized faces used by one render.
type faces struct {
	title    font.Face
	subtitle font.Face
	body     font.Face
	price    font.Face
	priceBig font.Face
}

func (fs *FontSet) newFaces() (*faces, error) {
	var (
		f   faces
		err error
	)
	if f.title, err = fs.face(64, true); err != nil {
		return nil, fmt.Errorf("title face: %w", err)
	}
	if f.subtitle, err = fs.face(32, false); err != nil {
		return nil, fmt.Errorf("subtitle face: %w", err)
	}
	if f.body, err = fs.face(28, false); err != nil {
		return nil, fmt.Errorf("body face: %w", err)
	}
	if f.price, err = fs.face(40, false); err != nil {
		return nil, fmt.Errorf("price face: %w", err)
	}
	if f.priceBig, err = fs.face(40, true); err != nil {
		return nil, fmt.Errorf("bold price face: %w", err)
	}
	return &f, nil
}

func (f *faces) Close() {
	for _, face := range []font.Face{f.title, f.subtitle, f.body, f.price, f.priceBig} {
		if face != nil {
			_ = face.Close()
		}
	}
}

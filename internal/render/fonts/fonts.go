// Package fonts registers the single text face used by card rendering.
package fonts

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/okian/duelcard/pkg/logger"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// BundledFont is the font file looked up inside the asset directory.
const BundledFont = "fonts/card.ttf"

// FallbackFamily names the embedded face used when no candidate loads.
const FallbackFamily = "sans-serif"

const fallbackSource = "embedded:goregular"

var systemFonts = map[string][]string{
	"linux": {
		"/usr/share/fonts/truetype/noto/NotoSans-Bold.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
		"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
		"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
	},
	"darwin": {
		"/System/Library/Fonts/Supplemental/Arial Bold.ttf",
		"/Library/Fonts/Arial Bold.ttf",
	},
	"windows": {
		`C:\Windows\Fonts\arialbd.ttf`,
		`C:\Windows\Fonts\segoeuib.ttf`,
	},
}

// DefaultCandidates lists font files in priority order: the bundled asset,
// then any .ttf/.otf in userDir (sorted), then well-known system fonts.
func DefaultCandidates(assetDir, userDir string) []string {
	var out []string
	if assetDir != "" {
		out = append(out, filepath.Join(assetDir, BundledFont))
	}
	if userDir != "" {
		entries, err := os.ReadDir(userDir)
		if err == nil {
			var names []string
			for _, e := range entries {
				ext := strings.ToLower(filepath.Ext(e.Name()))
				if !e.IsDir() && (ext == ".ttf" || ext == ".otf") {
					names = append(names, e.Name())
				}
			}
			sort.Strings(names)
			for _, n := range names {
				out = append(out, filepath.Join(userDir, n))
			}
		}
	}
	return append(out, systemFonts[runtime.GOOS]...)
}

// Registry resolves the card font once per process. Faces are created per
// call because a font.Face must not be shared between goroutines.
type Registry struct {
	once       sync.Once
	candidates []string
	logger     logger.Logger

	font   *opentype.Font
	family string
	source string
}

// New creates an unregistered Registry.
func New(opts ...Option) *Registry {
	r := &Registry{logger: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register loads the first usable candidate. It is safe to call repeatedly
// and from several goroutines; only the first call does any work. It never
// fails: with no usable candidate the embedded fallback face is used.
func (r *Registry) Register(ctx context.Context) {
	r.once.Do(func() {
		for _, path := range r.candidates {
			f, family, err := load(path)
			if err != nil {
				r.logger.Debug(ctx, "font candidate skipped", logger.String("path", path), logger.Error(err))
				continue
			}
			r.font, r.family, r.source = f, family, path
			r.logger.Info(ctx, "font registered", logger.String("family", family), logger.String("path", path))
			return
		}

		f, err := opentype.Parse(goregular.TTF)
		if err == nil {
			r.font = f
		}
		r.family, r.source = FallbackFamily, fallbackSource
		r.logger.Warn(ctx, "no font candidate usable, using fallback family",
			logger.String("family", FallbackFamily), logger.Int("candidates", len(r.candidates)))
	})
}

// Face returns a new face at size points.
func (r *Registry) Face(size float64) font.Face {
	r.Register(context.Background())
	if r.font == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

// Family is the logical family name every text draw uses.
func (r *Registry) Family() string {
	r.Register(context.Background())
	return r.family
}

// Source is the path the font came from, or an embedded marker.
func (r *Registry) Source() string {
	r.Register(context.Background())
	return r.source
}

func load(path string) (*opentype.Font, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, "", err
	}
	family, err := f.Name(nil, sfnt.NameIDFamily)
	if err != nil || family == "" {
		family = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, family, nil
}

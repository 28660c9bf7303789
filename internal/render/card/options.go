package card

import (
	"github.com/okian/duelcard/internal/render/layout"
	"github.com/okian/duelcard/pkg/logger"
)

// Option configures a Compositor.
type Option func(*Compositor)

// WithSize sets the output canvas size in pixels.
func WithSize(width, height int) Option {
	return func(c *Compositor) {
		if width > 0 && height > 0 {
			c.width, c.height = width, height
		}
	}
}

// WithAssetDir sets the directory holding background, placeholder and
// decoration images.
func WithAssetDir(dir string) Option {
	return func(c *Compositor) {
		c.assetDir = dir
	}
}

// WithReference overrides the reference design the layout scales from.
func WithReference(ref layout.Reference) Option {
	return func(c *Compositor) {
		if ref.Width > 0 && ref.Height > 0 && ref.RowHeight > 0 {
			c.ref = ref
		}
	}
}

// WithLogger sets the logger used for asset fallbacks.
func WithLogger(l logger.Logger) Option {
	return func(c *Compositor) {
		if l != nil {
			c.logger = l
		}
	}
}

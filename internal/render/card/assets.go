package card

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // avatar formats
	_ "image/jpeg" // avatar formats
	_ "image/png"  // avatar formats
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/duelcard/internal/domain/types"
	"github.com/okian/duelcard/pkg/logger"
	"github.com/okian/duelcard/pkg/metrics"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // avatar formats
)

// Asset file names looked up inside the asset directory.
const (
	AssetBackground  = "background.png"
	AssetPlaceholder = "placeholder.png"
	AssetCrownLeft   = "crown_left.png"
	AssetCrownRight  = "crown_right.png"
)

// maxImageSide bounds either dimension of a decoded image. The header is
// checked before any pixel buffer is allocated.
const maxImageSide = 4096

var errImageTooLarge = errors.New("image too large")

func decorationAsset(side types.Side) string {
	if side == types.SideLeft {
		return AssetCrownLeft
	}
	return AssetCrownRight
}

// loadAsset reads and decodes an image from the asset directory. Failures
// are logged and counted; the caller falls back.
func (c *Compositor) loadAsset(ctx context.Context, name string) image.Image {
	if c.assetDir == "" {
		metrics.RecordAssetFallback(name)
		return nil
	}
	path := filepath.Join(c.assetDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		level := c.logger.Warn
		if errors.Is(err, fs.ErrNotExist) {
			level = c.logger.Debug
		}
		level(ctx, "asset unavailable", logger.String("asset", name), logger.Error(err))
		metrics.RecordAssetFallback(name)
		return nil
	}
	img, err := decode(data)
	if err != nil {
		c.logger.Warn(ctx, "asset corrupt", logger.String("asset", name), logger.Error(err))
		metrics.RecordAssetFallback(name)
		return nil
	}
	return img
}

// avatar decodes supplied bytes, falling back to the placeholder asset.
func (c *Compositor) avatar(ctx context.Context, side types.Side, data []byte) image.Image {
	if len(data) > 0 {
		img, err := decode(data)
		if err == nil {
			return img
		}
		c.logger.Warn(ctx, "avatar undecodable, using placeholder",
			logger.String("side", string(side)), logger.Error(err))
		metrics.RecordAssetFallback("avatar")
	}
	return c.loadAsset(ctx, AssetPlaceholder)
}

func decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width < 1 || cfg.Height < 1 || cfg.Width > maxImageSide || cfg.Height > maxImageSide {
		return nil, fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// fit scales src to w x h. With cover set the largest centered region with
// the target aspect ratio is used so nothing is stretched.
func fit(src image.Image, w, h int, cover bool) image.Image {
	if w < 1 || h < 1 {
		return src
	}
	sr := src.Bounds()
	if cover && sr.Dx() > 0 && sr.Dy() > 0 {
		sw, sh := sr.Dx(), sr.Dy()
		if sw*h > sh*w {
			cw := sh * w / h
			sr.Min.X += (sw - cw) / 2
			sr.Max.X = sr.Min.X + cw
		} else {
			ch := sw * h / w
			sr.Min.Y += (sh - ch) / 2
			sr.Max.Y = sr.Min.Y + ch
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sr, xdraw.Over, nil)
	return dst
}

// Package card renders head-to-head stat cards as PNG images.
package card

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/okian/duelcard/internal/domain/comparator"
	"github.com/okian/duelcard/internal/domain/model"
	"github.com/okian/duelcard/internal/domain/types"
	"github.com/okian/duelcard/internal/render/fonts"
	"github.com/okian/duelcard/internal/render/layout"
	"github.com/okian/duelcard/internal/render/scaler"
	"github.com/okian/duelcard/pkg/logger"
	"github.com/okian/duelcard/pkg/metrics"
)

// Default canvas size of a production card.
const (
	DefaultWidth  = 1600
	DefaultHeight = 1000
)

// Mode tells prototype previews apart from real challenge cards.
type Mode string

const (
	ModeChallenge Mode = "challenge"
	ModePrototype Mode = "prototype"
)

var (
	colorBackground = color.RGBA{R: 0x1e, G: 0x1f, B: 0x29, A: 0xff}
	colorLeft       = color.RGBA{R: 0x4f, G: 0xa3, B: 0xff, A: 0xff}
	colorRight      = color.RGBA{R: 0xff, G: 0x6b, B: 0x9a, A: 0xff}
	colorText       = color.RGBA{R: 0xf5, G: 0xf5, B: 0xf7, A: 0xff}
	colorOutline    = color.RGBA{R: 0x10, G: 0x10, B: 0x14, A: 0xff}
	colorLabel      = color.RGBA{R: 0xc8, G: 0xc8, B: 0xd2, A: 0xff}
	colorLoserMask  = color.RGBA{A: 0x8c}
)

const missingValue = "-"

// Party is one side of the card.
type Party struct {
	Avatar []byte // encoded image; optional
	Name   string
}

// Request describes one card. Index 0 of Scores and the challenger tag in
// Winners belong to the left party.
type Request struct {
	Mode            Mode
	Left, Right     Party
	Scores          *[2]model.ScoreRecord
	Winners         []types.Tag
	Loser           types.Side
	PerfectFallback bool
}

// Compositor draws cards. It keeps no per-render state, so one value can
// serve concurrent renders.
type Compositor struct {
	fonts    *fonts.Registry
	width    int
	height   int
	ref      layout.Reference
	assetDir string
	logger   logger.Logger
}

// New creates a Compositor drawing text with faces from reg.
func New(reg *fonts.Registry, opts ...Option) *Compositor {
	c := &Compositor{
		fonts:  reg,
		width:  DefaultWidth,
		height: DefaultHeight,
		ref:    layout.DefaultReference(),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fonts == nil {
		c.fonts = fonts.New(fonts.WithLogger(c.logger))
	}
	return c
}

// Size returns the output canvas size.
func (c *Compositor) Size() (int, int) { return c.width, c.height }

// RenderPrototype draws the same party on both sides, for self-previews.
func (c *Compositor) RenderPrototype(ctx context.Context, p Party, rec *model.ScoreRecord) ([]byte, error) {
	req := Request{Mode: ModePrototype, Left: p, Right: p}
	if rec != nil {
		req.Scores = &[2]model.ScoreRecord{*rec, *rec}
		req.PerfectFallback = comparator.UsesPerfectFallback(*rec, *rec)
	}
	return c.Render(ctx, req)
}

// RenderChallenge draws the champion on the left and the responder on the
// right, marked up with the verdict.
func (c *Compositor) RenderChallenge(ctx context.Context, champion, responder Party,
	championScore, responderScore model.ScoreRecord, v comparator.Verdict,
) ([]byte, error) {
	return c.Render(ctx, Request{
		Mode:            ModeChallenge,
		Left:            champion,
		Right:           responder,
		Scores:          &[2]model.ScoreRecord{championScore, responderScore},
		Winners:         v.WinnerTags(),
		Loser:           v.Loser(),
		PerfectFallback: v.PerfectFallback,
	})
}

// Render draws req and returns PNG bytes. Missing or corrupt assets never
// fail a render; only encoding can.
func (c *Compositor) Render(ctx context.Context, req Request) ([]byte, error) {
	start := time.Now()
	mode := req.Mode
	if mode == "" {
		mode = ModeChallenge
	}
	defer func() {
		metrics.RecordCardRender(string(mode), float64(time.Since(start).Microseconds())/1000)
	}()

	g := layout.Compute(c.width, c.height, comparator.RowCount, c.ref)
	dc := gg.NewContext(c.width, c.height)

	c.drawBackground(ctx, dc)
	for _, side := range []types.Side{types.SideLeft, types.SideRight} {
		c.drawAvatar(dc, g, side, c.avatar(ctx, side, req.party(side).Avatar))
	}
	if req.Loser == types.SideLeft || req.Loser == types.SideRight {
		c.drawLoserMask(dc, g, req.Loser)
	}
	c.drawNames(dc, g, req)
	c.drawRows(dc, g, req)
	if req.Loser == types.SideLeft || req.Loser == types.SideRight {
		c.drawDecoration(ctx, dc, g, req.Loser.Other())
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}

func (r Request) party(side types.Side) Party {
	if side == types.SideLeft {
		return r.Left
	}
	return r.Right
}

func (r Request) winner(row int) types.Side {
	if row >= len(r.Winners) {
		return types.SideNone
	}
	return types.SideOf(r.Winners[row])
}

func sideColor(side types.Side) color.Color {
	if side == types.SideLeft {
		return colorLeft
	}
	return colorRight
}

func (c *Compositor) drawBackground(ctx context.Context, dc *gg.Context) {
	dc.SetColor(colorBackground)
	dc.Clear()
	if bg := c.loadAsset(ctx, AssetBackground); bg != nil {
		dc.DrawImage(fit(bg, c.width, c.height, true), 0, 0)
	}
}

func (c *Compositor) drawAvatar(dc *gg.Context, g layout.Geometry, side types.Side, img image.Image) {
	x, y, r := g.AvatarX(side), g.AvatarY, g.AvatarRadius
	if img != nil {
		d := int(math.Round(2 * r))
		dc.Push()
		dc.DrawCircle(x, y, r)
		dc.Clip()
		dc.DrawImageAnchored(fit(img, d, d, true), int(math.Round(x)), int(math.Round(y)), 0.5, 0.5)
		dc.ResetClip()
		dc.Pop()
	}
	dc.SetColor(sideColor(side))
	dc.SetLineWidth(g.RingWidth)
	dc.DrawCircle(x, y, r)
	dc.Stroke()
}

func (c *Compositor) drawLoserMask(dc *gg.Context, g layout.Geometry, side types.Side) {
	dc.SetColor(colorLoserMask)
	dc.DrawCircle(g.AvatarX(side), g.AvatarY, g.AvatarRadius)
	dc.Fill()
}

func (c *Compositor) drawNames(dc *gg.Context, g layout.Geometry, req Request) {
	dc.SetFontFace(c.fonts.Face(g.NameFontSize))
	for _, side := range []types.Side{types.SideLeft, types.SideRight} {
		name := Truncate(req.party(side).Name, maxNameRunes)
		x, y := g.AvatarX(side), g.NameY
		// Outline by redrawing around the glyphs, then fill on top.
		dc.SetColor(colorOutline)
		for i := 0; i < 8; i++ {
			a := float64(i) * math.Pi / 4
			dc.DrawStringAnchored(name, x+g.NameStroke*math.Cos(a), y+g.NameStroke*math.Sin(a), 0.5, 0.5)
		}
		dc.SetColor(colorText)
		dc.DrawStringAnchored(name, x, y, 0.5, 0.5)
	}
}

func (c *Compositor) drawRows(dc *gg.Context, g layout.Geometry, req Request) {
	labelFace := c.fonts.Face(g.LabelFontSize)
	valueFace := c.fonts.Face(g.ValueFontSize)
	dc.SetLineCap(gg.LineCapButt)

	for i, m := range comparator.Metrics {
		y := g.RowCenterY(i)

		dc.SetFontFace(labelFace)
		dc.SetColor(colorLabel)
		dc.DrawStringAnchored(Label(m, req.PerfectFallback), g.CenterX, y, 0.5, 0.5)

		values := [2]string{missingValue, missingValue}
		var bars scaler.Result
		if req.Scores != nil {
			values[0] = FormatValue(m, req.Scores[0], req.PerfectFallback)
			values[1] = FormatValue(m, req.Scores[1], req.PerfectFallback)
			if m.Competitive() {
				bars = scaler.Scale(
					m.Value(req.Scores[0], req.PerfectFallback),
					m.Value(req.Scores[1], req.PerfectFallback),
					g.BarMaxLength,
				)
			}
		}

		dc.SetFontFace(valueFace)
		winner := req.winner(i)
		for k, side := range []types.Side{types.SideLeft, types.SideRight} {
			length := bars.Length1
			if k == 1 {
				length = bars.Length2
			}
			if length > 0 {
				stroke := g.BarStroke
				if winner == side {
					stroke = g.WinnerBarStroke
				}
				x0 := g.BarStartX(side)
				dc.SetColor(sideColor(side))
				dc.SetLineWidth(stroke)
				dc.DrawLine(x0, y, x0+layout.Direction(side)*length, y)
				dc.Stroke()
			}

			ax := 0.0
			if side == types.SideLeft {
				ax = 1
			}
			dc.SetColor(colorText)
			dc.DrawStringAnchored(values[k], g.ValueX(side, length), y, ax, 0.5)
		}
	}
}

func (c *Compositor) drawDecoration(ctx context.Context, dc *gg.Context, g layout.Geometry, winner types.Side) {
	img := c.loadAsset(ctx, decorationAsset(winner))
	if img == nil {
		return
	}
	size := int(math.Round(g.DecorationSize))
	dc.DrawImageAnchored(fit(img, size, size, false), int(math.Round(g.AvatarX(winner))), int(math.Round(g.AvatarY)), 0.5, 0.5)
}

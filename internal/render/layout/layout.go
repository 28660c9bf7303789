// Package layout derives card geometry from a reference design.
package layout

import (
	"math"

	"github.com/okian/duelcard/internal/domain/types"
)

const (
	minStroke   = 2
	minFontSize = 8
)

// Reference is a card authored at a canonical resolution. Every position is
// in reference pixels.
type Reference struct {
	Width  float64
	Height float64

	AvatarOffsetX float64 // from the horizontal center
	AvatarCenterY float64
	AvatarRadius  float64
	RingWidth     float64

	NameY        float64
	NameFontSize float64
	NameStroke   float64

	StatsStartY  float64
	BottomMargin float64
	RowHeight    float64

	LabelFontSize  float64
	ValueFontSize  float64
	BarStroke      float64
	LabelHalfWidth float64
	ValueGap       float64
	ValueRoom      float64
	SideMargin     float64

	WinnerStrokeFactor float64
	DecorationScale    float64
}

// DefaultReference is the 800x500 design the production card scales from.
func DefaultReference() Reference {
	ref := Reference{
		Width:              800,
		Height:             500,
		AvatarOffsetX:      220,
		AvatarCenterY:      85,
		AvatarRadius:       55,
		RingWidth:          4,
		NameY:              170,
		NameFontSize:       22,
		NameStroke:         3,
		StatsStartY:        200,
		BottomMargin:       20,
		LabelFontSize:      15,
		ValueFontSize:      13,
		BarStroke:          10,
		LabelHalfWidth:     55,
		ValueGap:           8,
		ValueRoom:          90,
		SideMargin:         10,
		WinnerStrokeFactor: 1.6,
		DecorationScale:    1.3,
	}
	ref.RowHeight = (ref.Height - ref.StatsStartY - ref.BottomMargin) / 9
	return ref
}

// Geometry is the resolved layout for one canvas size and row count.
type Geometry struct {
	Width, Height  float64
	ScaleX, ScaleY float64
	CenterX        float64
	Rows           int

	AvatarOffsetX float64
	AvatarY       float64
	AvatarRadius  float64
	RingWidth     float64

	NameY        float64
	NameFontSize float64
	NameStroke   float64

	StatsStartY float64
	RowHeight   float64
	RowScale    float64

	LabelFontSize   float64
	ValueFontSize   float64
	BarStroke       float64
	WinnerBarStroke float64
	LabelHalfWidth  float64
	ValueGap        float64
	BarMaxLength    float64

	DecorationSize float64
}

// Compute scales ref onto a width x height canvas holding rows stat rows.
// Positions scale per axis; sizes use the smaller axis factor. Row-bound
// sizes are scaled again by the ratio of the derived row height to the
// reference row height.
func Compute(width, height, rows int, ref Reference) Geometry {
	if rows < 1 {
		rows = 1
	}
	w, h := float64(width), float64(height)
	sx, sy := w/ref.Width, h/ref.Height
	s := math.Min(sx, sy)

	g := Geometry{
		Width:   w,
		Height:  h,
		ScaleX:  sx,
		ScaleY:  sy,
		CenterX: w / 2,
		Rows:    rows,

		AvatarOffsetX: ref.AvatarOffsetX * sx,
		AvatarY:       ref.AvatarCenterY * sy,
		AvatarRadius:  ref.AvatarRadius * s,
		RingWidth:     math.Max(minStroke, ref.RingWidth*s),

		NameY:        ref.NameY * sy,
		NameFontSize: math.Max(minFontSize, ref.NameFontSize*s),
		NameStroke:   math.Max(minStroke, ref.NameStroke*s),

		StatsStartY: ref.StatsStartY * sy,
	}

	available := h - g.StatsStartY - ref.BottomMargin*sy
	g.RowHeight = math.Max(0, available/float64(rows))
	g.RowScale = g.RowHeight / ref.RowHeight

	g.LabelFontSize = math.Max(minFontSize, ref.LabelFontSize*g.RowScale)
	g.ValueFontSize = math.Max(minFontSize, ref.ValueFontSize*g.RowScale)
	g.BarStroke = math.Max(minStroke, ref.BarStroke*g.RowScale)
	g.WinnerBarStroke = g.BarStroke * ref.WinnerStrokeFactor
	g.LabelHalfWidth = ref.LabelHalfWidth * g.RowScale
	g.ValueGap = ref.ValueGap * g.RowScale
	g.BarMaxLength = math.Max(0, g.CenterX-g.LabelHalfWidth-(ref.ValueRoom+ref.SideMargin)*sx)

	g.DecorationSize = 2 * g.AvatarRadius * ref.DecorationScale
	return g
}

// RowCenterY is the vertical center of row i.
func (g Geometry) RowCenterY(i int) float64 {
	return g.StatsStartY + (float64(i)+0.5)*g.RowHeight
}

// AvatarX is the horizontal center of the avatar on side.
func (g Geometry) AvatarX(side types.Side) float64 {
	switch side {
	case types.SideLeft:
		return g.CenterX - g.AvatarOffsetX
	case types.SideRight:
		return g.CenterX + g.AvatarOffsetX
	default:
		return g.CenterX
	}
}

// Direction is -1 for the left side and +1 for the right.
func Direction(side types.Side) float64 {
	if side == types.SideLeft {
		return -1
	}
	return 1
}

// BarStartX is where the bar on side begins, just outside the label.
func (g Geometry) BarStartX(side types.Side) float64 {
	return g.CenterX + Direction(side)*g.LabelHalfWidth
}

// ValueX is where the value text is anchored for a bar of length l.
func (g Geometry) ValueX(side types.Side, l float64) float64 {
	return g.BarStartX(side) + Direction(side)*(l+g.ValueGap)
}

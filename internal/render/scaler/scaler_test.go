package scaler_test

import (
	"math"
	"testing"

	"github.com/okian/duelcard/internal/render/scaler"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBasis(t *testing.T) {
	Convey("Given magnitudes around powers of ten", t, func() {
		cases := []struct {
			in, want float64
		}{
			{1, 10},
			{9.99, 10},
			{10, 100},
			{99, 100},
			{100, 1000},
			{1000, 10000},
			{1_000_000, 10_000_000},
			{6_000_000, 10_000_000},
			{0.5, 1},
			{0.97, 1},
		}
		for _, tc := range cases {
			So(scaler.Basis(tc.in), ShouldEqual, tc.want)
		}
	})

	Convey("Given degenerate magnitudes", t, func() {
		So(scaler.Basis(0), ShouldEqual, scaler.DefaultBasis)
		So(scaler.Basis(-5), ShouldEqual, scaler.DefaultBasis)
		So(scaler.Basis(math.NaN()), ShouldEqual, scaler.DefaultBasis)
		So(scaler.Basis(math.Inf(1)), ShouldEqual, scaler.DefaultBasis)
	})
}

func TestScale(t *testing.T) {
	const maxLen = 200.0

	Convey("Given two combos in the hundreds", t, func() {
		r := scaler.Scale(400, 450, maxLen)

		Convey("Then lengths stay proportional and inside the cap", func() {
			So(r.Basis, ShouldEqual, 1000)
			// 80 and 90 are both under half, so they are doubled.
			So(r.Length1, ShouldAlmostEqual, 160)
			So(r.Length2, ShouldAlmostEqual, 180)
		})
	})

	Convey("Given values large enough to skip the boost", t, func() {
		r := scaler.Scale(600, 900, maxLen)
		So(r.Length1, ShouldAlmostEqual, 120)
		So(r.Length2, ShouldAlmostEqual, 180)
	})

	Convey("Given one small and one large value", t, func() {
		r := scaler.Scale(10, 900, maxLen)
		So(r.Length1, ShouldAlmostEqual, 2)
		So(r.Length2, ShouldAlmostEqual, 180)
	})

	Convey("Given two zeros", t, func() {
		r := scaler.Scale(0, 0, maxLen)
		So(r.Length1, ShouldEqual, 0)
		So(r.Length2, ShouldEqual, 0)
		So(r.Basis, ShouldEqual, scaler.DefaultBasis)
	})

	Convey("Given a negative value", t, func() {
		r := scaler.Scale(-5, 10, maxLen)
		So(r.Length1, ShouldEqual, 0)
		So(r.Length2, ShouldBeGreaterThan, 0)
		So(math.IsNaN(r.Length2), ShouldBeFalse)
	})

	Convey("Given non-finite values", t, func() {
		r := scaler.Scale(math.NaN(), math.Inf(1), maxLen)
		So(r.Length1, ShouldEqual, 0)
		So(r.Length2, ShouldEqual, 0)

		r = scaler.Scale(5, 5, math.Inf(1))
		So(r.Length1, ShouldEqual, 0)
		So(r.Length2, ShouldEqual, 0)
	})

	Convey("Given arbitrary non-negative pairs", t, func() {
		values := []float64{0, 0.01, 0.5, 1, 7, 10, 99, 100, 101, 512, 999, 1000, 65_432, 1_000_000, 6_123_456}

		Convey("Then ordering is preserved and lengths stay in range", func() {
			for _, a := range values {
				for _, b := range values {
					r := scaler.Scale(a, b, maxLen)
					So(r.Length1, ShouldBeBetweenOrEqual, 0, maxLen)
					So(r.Length2, ShouldBeBetweenOrEqual, 0, maxLen)
					if a <= b {
						So(r.Length1, ShouldBeLessThanOrEqualTo, r.Length2)
					}
				}
			}
		})
	})
}

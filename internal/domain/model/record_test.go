package model_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/okian/duelcard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/tidwall/gjson"
)

func TestTotalScoreOf(t *testing.T) {
	Convey("Given raw score values", t, func() {
		cases := []struct {
			raw  string
			want int64
			ok   bool
		}{
			{`1000000`, 1000000, true},
			{`"4567"`, 4567, true},
			{`{"total": 321, "value": 5}`, 321, true},
			{`{"value": 77}`, 77, true},
			{`{"total": {"value": 9}}`, 9, true},
			{`-1`, 0, false},
			{`1000.9`, 0, false},
			{`{"total": 1.5}`, 0, false},
			{`1e300`, 0, false},
			{`2e3`, 2000, true},
			{`"abc"`, 0, false},
			{`[1,2]`, 0, false},
			{`{"other": 1}`, 0, false},
			{`true`, 0, false},
		}

		for _, tc := range cases {
			got, ok := model.TotalScoreOf(gjson.Parse(tc.raw))
			So(ok, ShouldEqual, tc.ok)
			So(got, ShouldEqual, tc.want)
		}
	})
}

func TestParseRecord(t *testing.T) {
	Convey("Given a lazer-style score payload", t, func() {
		raw := []byte(`{
			"total_score": 1234567,
			"pp": 212.4,
			"accuracy": 0.9812,
			"max_combo": 812,
			"statistics": {"great": 900, "ok": 12, "meh": 1, "miss": 2},
			"mods": [{"acronym": "HD"}, {"acronym": "DT"}],
			"beatmap": {"id": 75, "version": "Insane", "beatmapset_id": 1},
			"user": {"username": "peppy"}
		}`)

		rec, err := model.ParseRecord(raw)

		Convey("Then every field is normalized", func() {
			So(err, ShouldBeNil)
			So(rec.TotalScore, ShouldEqual, 1234567)
			So(rec.PerformancePoints, ShouldAlmostEqual, 212.4)
			So(rec.Accuracy, ShouldAlmostEqual, 0.9812)
			So(rec.MaxCombo, ShouldEqual, 812)
			So(rec.Hits, ShouldResemble, model.HitCounts{Perfect: 900, Good: 12, Meh: 1, Miss: 2})
			So(rec.Modifiers, ShouldResemble, []string{"HD", "DT"})
			So(rec.Map, ShouldResemble, &model.MapReference{ID: 75, DifficultyName: "Insane", SetID: 1})
			So(rec.OwnerName, ShouldEqual, "peppy")
			So(rec.HasMap(), ShouldBeTrue)
		})
	})

	Convey("Given a legacy payload with a nested score and count_ keys", t, func() {
		raw := []byte(`{
			"score": {"total": 500000, "value": 1},
			"accuracy": 97.5,
			"statistics": {"count_300": 300, "count_100": 20, "count_50": 3, "count_miss": 4},
			"mods": ["HR"]
		}`)

		rec, err := model.ParseRecord(raw)

		Convey("Then the canonical extraction picks total and accuracy becomes a fraction", func() {
			So(err, ShouldBeNil)
			So(rec.TotalScore, ShouldEqual, 500000)
			So(rec.Accuracy, ShouldAlmostEqual, 0.975)
			So(rec.Hits, ShouldResemble, model.HitCounts{Perfect: 300, Good: 20, Meh: 3, Miss: 4})
			So(rec.Modifiers, ShouldResemble, []string{"HR"})
		})

		Convey("Then a missing map does not fail parsing", func() {
			So(rec.Map, ShouldBeNil)
			So(rec.HasMap(), ShouldBeFalse)
		})
	})

	Convey("Given a payload with only a score", t, func() {
		rec, err := model.ParseRecord([]byte(`{"score": 10}`))

		Convey("Then absent numeric fields default to zero", func() {
			So(err, ShouldBeNil)
			So(rec.PerformancePoints, ShouldEqual, 0)
			So(rec.Accuracy, ShouldEqual, 0)
			So(rec.MaxCombo, ShouldEqual, 0)
			So(rec.Hits, ShouldResemble, model.HitCounts{})
		})
	})

	Convey("Given malformed payloads", t, func() {
		bad := map[string]string{
			"not json":       `{"score":`,
			"array":          `[1,2,3]`,
			"missing score":  `{"pp": 10}`,
			"negative score": `{"score": -4}`,
			"fraction score": `{"score": 1000.9}`,
			"text pp":        `{"score": 1, "pp": "lots"}`,
			"object combo":   `{"score": 1, "max_combo": {}}`,
			"fraction hits":  `{"score": 1, "hits": {"miss": 1.5}}`,
			"accuracy > 100": `{"score": 1, "accuracy": 250}`,
		}

		for name, raw := range bad {
			Convey("Then "+name+" is rejected as invalid score data", func() {
				_, err := model.ParseRecord([]byte(raw))
				So(err, ShouldNotBeNil)
				So(errors.Is(err, model.ErrInvalidScoreData), ShouldBeTrue)
			})
		}

		Convey("Then a fractional score is blamed on the score field", func() {
			_, err := model.ParseRecord([]byte(`{"score": 1000.9}`))
			var typed *model.InvalidScoreDataError
			So(errors.As(err, &typed), ShouldBeTrue)
			So(typed.Field, ShouldEqual, "score")
		})

		Convey("Then the typed error names the offending field", func() {
			_, err := model.ParseRecord([]byte(`{"pp": 10}`))
			var typed *model.InvalidScoreDataError
			So(errors.As(err, &typed), ShouldBeTrue)
			So(typed.Field, ShouldEqual, "score")
			So(err.Error(), ShouldContainSubstring, "invalid score data: score")
		})
	})

	Convey("Given a record encoded as JSON", t, func() {
		orig := model.ScoreRecord{
			TotalScore:        987654,
			PerformancePoints: 99.5,
			Accuracy:          0.95,
			MaxCombo:          321,
			Hits:              model.HitCounts{Perfect: 250, Good: 10, Meh: 2, Miss: 1},
			Modifiers:         []string{"HD"},
			Map:               &model.MapReference{ID: 3, DifficultyName: "Hard"},
			OwnerName:         "alice",
		}
		raw, err := json.Marshal(orig)
		So(err, ShouldBeNil)

		Convey("Then ParseRecord reads it back unchanged", func() {
			got, err := model.ParseRecord(raw)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, orig)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given records with broken invariants", t, func() {
		So(model.ScoreRecord{}.Validate(), ShouldBeNil)
		So(model.ScoreRecord{TotalScore: -1}.Validate(), ShouldNotBeNil)
		So(model.ScoreRecord{PerformancePoints: math.NaN()}.Validate(), ShouldNotBeNil)
		So(model.ScoreRecord{PerformancePoints: math.Inf(1)}.Validate(), ShouldNotBeNil)
		So(model.ScoreRecord{Accuracy: 1.01}.Validate(), ShouldNotBeNil)
		So(model.ScoreRecord{MaxCombo: -3}.Validate(), ShouldNotBeNil)
		So(model.ScoreRecord{Hits: model.HitCounts{Meh: -1}}.Validate(), ShouldNotBeNil)
	})
}

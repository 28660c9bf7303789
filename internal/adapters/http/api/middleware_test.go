package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInstrument(t *testing.T) {
	Convey("Given an instrumented route", t, func() {
		status := http.StatusTooManyRequests
		var seen int
		h := Instrument("challenges_respond", func(w http.ResponseWriter, _ *http.Request) {
			if status != http.StatusOK {
				w.WriteHeader(status)
			}
			_, _ = w.Write([]byte("{}"))
			seen = w.(*statusRecorder).status
		})

		Convey("When the handler rejects the submission", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodPost, "/v1/challenges/c1/responses", nil))

			Convey("Then the status reaches the client and the recorder", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(seen, ShouldEqual, http.StatusTooManyRequests)
				So(w.Body.String(), ShouldEqual, "{}")
			})
		})

		Convey("When the handler only writes a body", func() {
			status = http.StatusOK
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodPost, "/v1/challenges/c1/responses", nil))

			Convey("Then the implicit 200 is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(seen, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestFailureClass(t *testing.T) {
	Convey("Given the statuses the duel handlers emit", t, func() {
		cases := map[int]string{
			http.StatusOK:                  "",
			http.StatusAccepted:            "",
			http.StatusBadRequest:          "client_error",
			http.StatusNotFound:            "not_found",
			http.StatusConflict:            "conflict",
			http.StatusTooManyRequests:     "backpressure",
			http.StatusServiceUnavailable:  "unavailable",
			http.StatusInternalServerError: "server_error",
		}
		for status, want := range cases {
			So(failureClass(status), ShouldEqual, want)
		}
	})
}

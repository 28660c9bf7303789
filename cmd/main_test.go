package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/duelcard/internal/adapters/repository"
	app "github.com/okian/duelcard/internal/app"
	"github.com/okian/duelcard/internal/config"
	"github.com/okian/duelcard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestConfigFromEnv(t *testing.T) {
	convey.Convey("Given DUEL_ environment overrides", t, func() {
		setEnv(t, map[string]string{
			"DUEL_ADDR":         ":8080",
			"DUEL_QUEUE_SIZE":   "1000",
			"DUEL_WORKER_COUNT": "4",
		})

		convey.Convey("Then configuration should pick them up", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.SubmissionQueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
		})
	})

	convey.Convey("Given an unknown store backend", t, func() {
		setEnv(t, map[string]string{"DUEL_STORE_BACKEND": "cassandra"})

		convey.Convey("Then loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestWiring(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.CanvasWidth, cfg.CanvasHeight = 400, 250
		cfg.AssetDir = t.TempDir()
		log := logger.Nop()

		convey.Convey("When opening the store", func() {
			store, closeStore, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer closeStore()

			convey.Convey("Then the memory store is used", func() {
				_, ok := store.(*repository.MemoryStore)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When no discord token is configured", func() {
			poster, err := newPoster(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)
			_, ok := poster.(app.LogPoster)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("When a discord token is configured", func() {
			cfg.DiscordToken = "token"
			poster, err := newPoster(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)
			_, ok := poster.(app.LogPoster)
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("When the service and routes are built", func() {
			store, closeStore, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer closeStore()
			poster, _ := newPoster(ctx, cfg, log)

			svc := newService(cfg, store, poster, log)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()
			mux := newMux(ctx, svc, log)

			convey.Convey("Then the health, docs and preview routes answer", func() {
				for _, path := range []string{"/healthz", "/stats", "/openapi.yaml", "/api-docs"} {
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}

				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/cards/preview",
					strings.NewReader(`{"name":"alice","score":{"score":123456,"pp":0}}`)))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "image/png")
			})

			convey.Convey("Then stats reflect the configured canvas", func() {
				convey.So(svc.GetStats()["canvas"], convey.ShouldEqual, "400x250")
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("Then the system updater returns when its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then the service updater returns when its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startServiceMetricsUpdater(ctx, app.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then one-shot updates do not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(app.New()) }, convey.ShouldNotPanic)
		})
	})
}

func TestMain(m *testing.M) {
	// Keep a developer's .env or shell from leaking into config tests.
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, config.EnvPrefix) {
			_ = os.Unsetenv(strings.SplitN(kv, "=", 2)[0])
		}
	}
	os.Exit(m.Run())
}

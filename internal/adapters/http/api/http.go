// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/duelcard/internal/adapters/repository"
	service "github.com/okian/duelcard/internal/app"
	"github.com/okian/duelcard/internal/domain/comparator"
	"github.com/okian/duelcard/internal/domain/model"
	"github.com/okian/duelcard/pkg/logger"
)

// maxBodyBytes bounds request bodies; inline avatars are the largest input.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Compare(ctx context.Context, challenger, responder model.ScoreRecord, responderName string) (comparator.Verdict, error)
	RenderCard(ctx context.Context, in service.CardInput) ([]byte, comparator.Verdict, error)
	RenderPreview(ctx context.Context, p service.CardParty, rec *model.ScoreRecord) ([]byte, error)

	CreateChallenge(ctx context.Context, in service.NewChallenge) (repository.Challenge, error)
	GetChallenge(ctx context.Context, id string) (repository.Challenge, error)

	SubmitResponse(ctx context.Context, sub model.Submission) (service.SubmitResult, error)
	Resolution(ctx context.Context, submissionID string) (service.Resolution, bool)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	cardsHandler      *CardsHandler
	challengesHandler *ChallengesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		cardsHandler:      NewCardsHandler(deps, o.logger),
		challengesHandler: NewChallengesHandler(deps, o.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", Instrument("healthz", s.healthHandler.HandleHealth))
	mux.HandleFunc("GET /stats", Instrument("stats", s.statsHandler.HandleStats))

	mux.HandleFunc("POST /v1/compare", Instrument("compare", s.cardsHandler.HandleCompare))
	mux.HandleFunc("POST /v1/cards", Instrument("cards", s.cardsHandler.HandleCard))
	mux.HandleFunc("POST /v1/cards/preview", Instrument("cards_preview", s.cardsHandler.HandlePreview))

	mux.HandleFunc("POST /v1/challenges", Instrument("challenges_create", s.challengesHandler.HandleCreate))
	mux.HandleFunc("GET /v1/challenges/{id}", Instrument("challenges_get", s.challengesHandler.HandleGet))
	mux.HandleFunc("POST /v1/challenges/{id}/responses", Instrument("challenges_respond", s.challengesHandler.HandleRespond))
	mux.HandleFunc("GET /v1/submissions/{id}", Instrument("submissions", s.challengesHandler.HandleSubmission))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps domain and service errors onto HTTP statuses.
func writeFailure(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrInvalidScoreData):
		writeError(w, http.StatusBadRequest, "invalid_score_data", Wrap(op, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, repository.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "conflict", Wrap(op, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// decodeBody reads a JSON body into dst, rejecting unknown trailing data.
func decodeBody(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if dec.More() {
		return WrapKind(op, ErrBadRequest, errors.New("trailing data after JSON body"))
	}
	return nil
}

// parseRecord decodes a raw score payload; field names the request member
// so clients can tell which record failed.
func parseRecord(field string, raw json.RawMessage) (model.ScoreRecord, error) {
	if len(raw) == 0 {
		return model.ScoreRecord{}, &model.InvalidScoreDataError{Field: field, Reason: "missing"}
	}
	rec, err := model.ParseRecord(raw)
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("%s: %w", field, err)
	}
	return rec, nil
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/duelcard/internal/app"
	"github.com/okian/duelcard/internal/domain/model"
	"github.com/okian/duelcard/pkg/logger"
)

// ChallengesHandler serves challenge creation, responses and resolutions.
type ChallengesHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewChallengesHandler creates a new challenges handler.
func NewChallengesHandler(deps Dependencies, l logger.Logger) *ChallengesHandler {
	return &ChallengesHandler{deps: deps, logger: l}
}

type createChallengeRequest struct {
	ChallengerID   string          `json:"challenger_id"`
	ChallengerName string          `json:"challenger_name"`
	AvatarURL      string          `json:"avatar_url,omitempty"`
	MapID          int64           `json:"map_id,omitempty"`
	Score          json.RawMessage `json:"score"`
}

func (c createChallengeRequest) validate() error {
	switch {
	case strings.TrimSpace(c.ChallengerID) == "":
		return errors.New("missing challenger_id")
	case strings.TrimSpace(c.ChallengerName) == "":
		return errors.New("missing challenger_name")
	case c.MapID < 0:
		return errors.New("map_id must not be negative")
	}
	return nil
}

type responseRequest struct {
	SubmissionID  string          `json:"submission_id,omitempty"`
	ResponderID   string          `json:"responder_id"`
	ResponderName string          `json:"responder_name"`
	AvatarURL     string          `json:"avatar_url,omitempty"`
	ChannelID     string          `json:"channel_id,omitempty"`
	Score         json.RawMessage `json:"score"`
}

func (s responseRequest) validate() error {
	switch {
	case strings.TrimSpace(s.ResponderID) == "":
		return errors.New("missing responder_id")
	case strings.TrimSpace(s.ResponderName) == "":
		return errors.New("missing responder_name")
	}
	return nil
}

type ackResponse struct {
	Status       string `json:"status"`
	SubmissionID string `json:"submission_id"`
	Duplicate    bool   `json:"duplicate"`
}

// HandleCreate handles POST /v1/challenges requests.
func (h *ChallengesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_challenge"
	ctx := r.Context()

	var req createChallengeRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(ctx, w, h.logger, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := parseRecord("score", req.Score)
	if err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}

	ch, err := h.deps.CreateChallenge(ctx, service.NewChallenge{
		ChallengerID:   req.ChallengerID,
		ChallengerName: req.ChallengerName,
		AvatarURL:      req.AvatarURL,
		MapID:          req.MapID,
		Record:         rec,
	})
	if err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	w.Header().Set("Location", "/v1/challenges/"+ch.ID)
	writeJSON(w, http.StatusCreated, ch)
}

// HandleGet handles GET /v1/challenges/{id} requests.
func (h *ChallengesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_challenge"
	ctx := r.Context()

	ch, err := h.deps.GetChallenge(ctx, r.PathValue("id"))
	if err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// HandleRespond handles POST /v1/challenges/{id}/responses requests. The
// submission is resolved asynchronously; its outcome is read back through
// GET /v1/submissions/{id}.
func (h *ChallengesHandler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	const op = "api.respond"
	ctx := r.Context()

	var req responseRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(ctx, w, h.logger, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := parseRecord("score", req.Score)
	if err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}

	res, err := h.deps.SubmitResponse(ctx, model.Submission{
		SubmissionID:  req.SubmissionID,
		ChallengeID:   r.PathValue("id"),
		ResponderID:   req.ResponderID,
		ResponderName: req.ResponderName,
		AvatarURL:     req.AvatarURL,
		ChannelID:     req.ChannelID,
		Record:        rec,
	})
	if err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	if res.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", SubmissionID: res.SubmissionID, Duplicate: true})
		return
	}
	w.Header().Set("Location", "/v1/submissions/"+res.SubmissionID)
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", SubmissionID: res.SubmissionID})
}

// HandleSubmission handles GET /v1/submissions/{id} requests.
func (h *ChallengesHandler) HandleSubmission(w http.ResponseWriter, r *http.Request) {
	const op = "api.submission"
	res, ok := h.deps.Resolution(r.Context(), r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

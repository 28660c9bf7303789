package api

import (
	"encoding/json"
	"net/http"

	service "github.com/okian/duelcard/internal/app"
	"github.com/okian/duelcard/internal/domain/model"
	"github.com/okian/duelcard/internal/domain/types"
	"github.com/okian/duelcard/pkg/logger"
)

// CardsHandler serves comparisons and card renders.
type CardsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewCardsHandler creates a new cards handler.
func NewCardsHandler(deps Dependencies, l logger.Logger) *CardsHandler {
	return &CardsHandler{deps: deps, logger: l}
}

type compareRequest struct {
	Challenger    json.RawMessage `json:"challenger"`
	Responder     json.RawMessage `json:"responder"`
	ResponderName string          `json:"responder_name"`
}

type partyRequest struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Avatar    []byte `json:"avatar,omitempty"` // base64 image bytes
}

func (p partyRequest) party() service.CardParty {
	return service.CardParty{Name: p.Name, AvatarURL: p.AvatarURL, Avatar: p.Avatar}
}

type cardRequest struct {
	Left       partyRequest    `json:"left"`
	Right      partyRequest    `json:"right"`
	LeftScore  json.RawMessage `json:"left_score"`
	RightScore json.RawMessage `json:"right_score"`
	Winners    []types.Tag     `json:"winners,omitempty"`
	Loser      types.Side      `json:"loser,omitempty"`
}

type previewRequest struct {
	partyRequest
	Score json.RawMessage `json:"score,omitempty"`
}

// HandleCompare handles POST /v1/compare requests.
func (h *CardsHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"
	ctx := r.Context()

	var req compareRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	challenger, err := parseRecord("challenger", req.Challenger)
	if err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	responder, err := parseRecord("responder", req.Responder)
	if err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}

	v, err := h.deps.Compare(ctx, challenger, responder, req.ResponderName)
	if err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleCard handles POST /v1/cards requests and answers with a PNG.
func (h *CardsHandler) HandleCard(w http.ResponseWriter, r *http.Request) {
	const op = "api.card"
	ctx := r.Context()

	var req cardRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	left, err := parseRecord("left_score", req.LeftScore)
	if err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	right, err := parseRecord("right_score", req.RightScore)
	if err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}

	png, v, err := h.deps.RenderCard(ctx, service.CardInput{
		Left:       req.Left.party(),
		Right:      req.Right.party(),
		LeftScore:  left,
		RightScore: right,
		Winners:    req.Winners,
		Loser:      req.Loser,
	})
	if err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	w.Header().Set("X-Duel-Outcome", string(v.Outcome()))
	writePNG(w, png)
}

// HandlePreview handles POST /v1/cards/preview requests. The score is
// optional; without it every value row shows a placeholder.
func (h *CardsHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.preview"
	ctx := r.Context()

	var req previewRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	var rec *model.ScoreRecord
	if len(req.Score) > 0 && string(req.Score) != "null" {
		parsed, err := parseRecord("score", req.Score)
		if err != nil {
			writeFailure(ctx, w, h.logger, op, err)
			return
		}
		rec = &parsed
	}

	png, err := h.deps.RenderPreview(ctx, req.party(), rec)
	if err != nil {
		writeFailure(ctx, w, h.logger, op, err)
		return
	}
	writePNG(w, png)
}

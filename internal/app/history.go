package service

import (
	"container/list"
	"sync"
	"time"

	"github.com/okian/duelcard/internal/domain/comparator"
)

// Status is the lifecycle state of a submission.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

// Resolution is the outcome of one submission.
type Resolution struct {
	SubmissionID    string              `json:"submission_id"`
	ChallengeID     string              `json:"challenge_id"`
	ResponderName   string              `json:"responder_name"`
	Status          Status              `json:"status"`
	Verdict         *comparator.Verdict `json:"verdict,omitempty"`
	ChampionChanged bool                `json:"champion_changed"`
	ChampionID      string              `json:"champion_id,omitempty"`
	ChampionName    string              `json:"champion_name,omitempty"`
	Version         int64               `json:"version,omitempty"`
	Message         string              `json:"message,omitempty"`
	Error           string              `json:"error,omitempty"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// history keeps the most recent resolutions, evicting the oldest.
type history struct {
	mu    sync.RWMutex
	max   int
	items map[string]*list.Element
	order *list.List
}

func newHistory(maxSize int) *history {
	return &history{max: maxSize, items: make(map[string]*list.Element), order: list.New()}
}

func (h *history) put(r Resolution) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if el, ok := h.items[r.SubmissionID]; ok {
		el.Value = r
		return
	}
	if h.max > 0 && len(h.items) >= h.max {
		if oldest := h.order.Front(); oldest != nil {
			delete(h.items, oldest.Value.(Resolution).SubmissionID)
			h.order.Remove(oldest)
		}
	}
	h.items[r.SubmissionID] = h.order.PushBack(r)
}

func (h *history) get(id string) (Resolution, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	el, ok := h.items[id]
	if !ok {
		return Resolution{}, false
	}
	return el.Value.(Resolution), true
}

func (h *history) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

package controller

import (
	"context"
	"net/http"
	"strconv"

	redisStore "github.com/cassiomorais/billing/internal/infrastructure/redis"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
)

// EventReader reads the most recent billing transitions.
type EventReader interface {
	Recent(ctx context.Context, count int64) ([]redisStore.BillingEvent, error)
}

type EventsController struct {
	events EventReader
}

func NewEventsController(events EventReader) *EventsController {
	return &EventsController{events: events}
}

// Recent lists billing transitions newest first. The limit query parameter
// defaults to 50 and is capped at 1000.
func (h *EventsController) Recent(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultEventLimit)
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer", Code: "invalid_limit"})
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []redisStore.BillingEvent{}
	}

	writeJSON(w, http.StatusOK, BillingEventsResponse{Events: events})
}

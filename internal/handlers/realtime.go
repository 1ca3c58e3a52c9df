package handlers

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum/backend/internal/logging"
	"github.com/emilythestrangee/forum/backend/internal/middleware"
	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/realtime"
	"github.com/emilythestrangee/forum/backend/internal/voting"
)

// Inbound realtime events.
const (
	EventChangeRating        = "change_rating"
	EventChangeCommentRating = "change_comment_rating"
)

type changeRatingMessage struct {
	TargetID      string `json:"targetId"`
	Intent        *int   `json:"intent"`
	ButtonPressed string `json:"buttonPressed"`
}

type RealtimeHandler struct {
	svc *voting.Service
	hub *realtime.Hub
}

// NewRealtimeHandler registers the vote events on hub.
func NewRealtimeHandler(svc *voting.Service, hub *realtime.Hub) *RealtimeHandler {
	h := &RealtimeHandler{svc: svc, hub: hub}
	hub.Handle(EventChangeRating, h.changeRating(models.TargetPost))
	hub.Handle(EventChangeCommentRating, h.changeRating(models.TargetComment))
	return h
}

// Connect handles GET /ws. Anonymous callers may connect but their votes
// are dropped.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.hub.Serve(c.Writer, c.Request, middleware.Identity(c)); err != nil {
		// The upgrader has already written an HTTP error response.
		logging.FromContext(ctx).DebugContext(ctx, "websocket upgrade failed", "error", err)
	}
}

func (h *RealtimeHandler) changeRating(kind models.TargetKind) realtime.HandlerFunc {
	return func(ctx context.Context, s *realtime.Session, data json.RawMessage) {
		logger := logging.FromContext(ctx)

		var msg changeRatingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.DebugContext(ctx, "vote dropped", "reason", err)
			return
		}

		_, err := h.svc.Cast(ctx, voting.Request{
			SessionID: s.ID,
			Identity:  s.Identity,
			Kind:      kind,
			TargetID:  msg.TargetID,
			Intent:    msg.Intent,
			Button:    msg.ButtonPressed,
		})
		switch {
		case voting.IsDropped(err):
			logger.DebugContext(ctx, "vote dropped", "reason", err)
		case err != nil:
			logger.ErrorContext(ctx, "vote failed", "error", err)
		}
	}
}

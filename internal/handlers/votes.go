package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum/backend/internal/logging"
	"github.com/emilythestrangee/forum/backend/internal/middleware"
	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/voting"
)

// VoteHandler is the plain HTTP route into the voting service, for clients
// without a realtime connection.
type VoteHandler struct {
	svc *voting.Service
}

func NewVoteHandler(svc *voting.Service) *VoteHandler {
	return &VoteHandler{svc: svc}
}

// VotePost handles POST /posts/:id/vote
func (h *VoteHandler) VotePost(c *gin.Context) {
	h.cast(c, models.TargetPost, c.Param("id"))
}

// VoteComment handles POST /comments/:commentId/vote
func (h *VoteHandler) VoteComment(c *gin.Context) {
	h.cast(c, models.TargetComment, c.Param("commentId"))
}

// cast answers 200 with the new rating, or 204 when the vote was dropped.
// Dropped votes carry no reason, matching the realtime channel.
func (h *VoteHandler) cast(c *gin.Context, kind models.TargetKind, targetID string) {
	ctx := c.Request.Context()

	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		logging.FromContext(ctx).DebugContext(ctx, "vote dropped", "reason", err)
		c.Status(http.StatusNoContent)
		return
	}

	out, err := h.svc.Cast(ctx, voting.Request{
		Identity: middleware.Identity(c),
		Kind:     kind,
		TargetID: targetID,
		Intent:   input.Intent,
		Button:   input.Button,
	})
	if voting.IsDropped(err) {
		logging.FromContext(ctx).DebugContext(ctx, "vote dropped", "reason", err)
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "vote failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote"})
		return
	}

	c.JSON(http.StatusOK, out)
}

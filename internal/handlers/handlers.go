package handlers

import (
	"gorm.io/gorm"

	"github.com/emilythestrangee/forum/backend/internal/auth"
	"github.com/emilythestrangee/forum/backend/internal/database"
	"github.com/emilythestrangee/forum/backend/internal/realtime"
	"github.com/emilythestrangee/forum/backend/internal/voting"
)

// Handler combines all handler types
type Handler struct {
	Auth     *AuthHandler
	Post     *PostHandler
	Comment  *CommentHandler
	User     *UserHandler
	Vote     *VoteHandler
	Realtime *RealtimeHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(db *gorm.DB, tokens *auth.Tokens, votes *database.VoteStore, hub *realtime.Hub) *Handler {
	svc := voting.NewService(votes, hub)

	return &Handler{
		Auth:     NewAuthHandler(db, tokens),
		Post:     NewPostHandler(db, votes),
		Comment:  NewCommentHandler(db, votes),
		User:     NewUserHandler(db),
		Vote:     NewVoteHandler(svc),
		Realtime: NewRealtimeHandler(svc, hub),
	}
}

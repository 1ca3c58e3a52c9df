package models

import (
	"time"

	"github.com/emilythestrangee/forum/backend/internal/rating"
)

// TargetKind says which table a vote's TargetID refers to.
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// Table is the name of the table holding targets of this kind.
func (k TargetKind) Table() string {
	switch k {
	case TargetPost:
		return "posts"
	case TargetComment:
		return "comments"
	default:
		return ""
	}
}

// Vote is one voter's standing on one target. A missing row means neutral;
// the unique index keeps it to a single row per (voter, target).
type Vote struct {
	ID          int                `gorm:"primaryKey" json:"id"`
	UserID      int                `gorm:"not null;uniqueIndex:idx_votes_voter_target" json:"user_id"`
	TargetKind  TargetKind         `gorm:"size:16;not null;uniqueIndex:idx_votes_voter_target;index:idx_votes_target" json:"target_kind"`
	TargetID    int                `gorm:"not null;uniqueIndex:idx_votes_voter_target;index:idx_votes_target" json:"target_id"`
	Disposition rating.Disposition `gorm:"not null;check:disposition IN (-1, 1)" json:"disposition"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// VoteRequest is the HTTP body for casting a vote.
type VoteRequest struct {
	Intent *int   `json:"intent" binding:"required"`
	Button string `json:"button" binding:"required"`
}

// RatingChanged is echoed to the voter after an accepted vote.
type RatingChanged struct {
	TargetID           int    `json:"targetId"`
	NewRatingFormatted string `json:"newRatingFormatted"`
	Intent             int    `json:"intent"`
	ButtonPressed      string `json:"buttonPressed"`
}

package voting

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/emilythestrangee/forum/backend/internal/auth"
	"github.com/emilythestrangee/forum/backend/internal/database"
	"github.com/emilythestrangee/forum/backend/internal/logging"
	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/rating"
)

// EventRatingChanged is the outbound event echoed to the voter.
const EventRatingChanged = "rating_changed"

// Drop reasons. Callers on the realtime channel treat all three as a silent
// no-op; only storage failures are real errors.
var (
	ErrMalformed    = errors.New("malformed vote")
	ErrUnauthorized = errors.New("anonymous users cannot vote")
	ErrRejected     = rating.ErrIllegalTransition
)

// IsDropped reports whether err means the vote was ignored rather than failed.
func IsDropped(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrRejected)
}

type Store interface {
	Apply(ctx context.Context, a database.VoteAction) (database.VoteResult, error)
}

type Notifier interface {
	Emit(sessionID, event string, payload any) error
}

// Request is a raw vote action as it arrives from a client.
type Request struct {
	// SessionID is the realtime session to echo to; empty skips the echo.
	SessionID string
	Identity  auth.Identity
	Kind      models.TargetKind
	TargetID  string
	Intent    *int
	Button    string
}

type Service struct {
	store    Store
	notifier Notifier
}

func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Cast validates and applies one vote action and, when it is accepted,
// echoes the new rating to the acting session.
func (s *Service) Cast(ctx context.Context, req Request) (models.RatingChanged, error) {
	logger := logging.FromContext(ctx)

	if req.Identity.IsAnonymous() {
		return models.RatingChanged{}, ErrUnauthorized
	}

	action, err := parse(req)
	if err != nil {
		return models.RatingChanged{}, err
	}

	res, err := s.store.Apply(ctx, action)
	switch {
	case errors.Is(err, rating.ErrIllegalTransition):
		return models.RatingChanged{}, ErrRejected
	case errors.Is(err, database.ErrTargetNotFound):
		return models.RatingChanged{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	case err != nil:
		return models.RatingChanged{}, fmt.Errorf("applying vote: %w", err)
	}

	out := models.RatingChanged{
		TargetID:           action.TargetID,
		NewRatingFormatted: rating.Format(res.Rating),
		Intent:             action.Intent,
		ButtonPressed:      string(action.Button),
	}

	logger.DebugContext(ctx, "vote applied",
		"voter_id", action.VoterID,
		"target_kind", action.Kind,
		"target_id", action.TargetID,
		"from", res.Previous,
		"to", res.Transition.Next,
		"rating", res.Rating,
	)

	if req.SessionID != "" && s.notifier != nil {
		if err := s.notifier.Emit(req.SessionID, EventRatingChanged, out); err != nil {
			// The vote is committed; a vanished session only misses its echo.
			logger.WarnContext(ctx, "failed to echo rating", "session_id", req.SessionID, "error", err)
		}
	}

	return out, nil
}

func parse(req Request) (database.VoteAction, error) {
	if req.Kind.Table() == "" {
		return database.VoteAction{}, fmt.Errorf("%w: unknown target kind %q", ErrMalformed, req.Kind)
	}

	id, err := strconv.Atoi(req.TargetID)
	if err != nil || id <= 0 {
		return database.VoteAction{}, fmt.Errorf("%w: target id %q", ErrMalformed, req.TargetID)
	}

	if req.Intent == nil {
		return database.VoteAction{}, fmt.Errorf("%w: missing intent", ErrMalformed)
	}

	button, ok := rating.ParseButton(req.Button)
	if !ok {
		return database.VoteAction{}, fmt.Errorf("%w: button %q", ErrMalformed, req.Button)
	}

	return database.VoteAction{
		VoterID:  req.Identity.UserID,
		Kind:     req.Kind,
		TargetID: id,
		Button:   button,
		Intent:   *req.Intent,
	}, nil
}

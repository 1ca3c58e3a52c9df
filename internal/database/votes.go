package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/forum/backend/internal/logging"
	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/rating"
)

var (
	ErrTargetNotFound = errors.New("vote target not found")
	ErrUnknownTarget  = errors.New("unknown vote target kind")
)

// VoteAction is one press of a like or dislike button by a registered user.
type VoteAction struct {
	VoterID  int
	Kind     models.TargetKind
	TargetID int
	Button   rating.Button
	Intent   int
}

// VoteResult describes an accepted action after it has been committed.
type VoteResult struct {
	Previous   rating.Disposition
	Transition rating.Transition
	Rating     int
}

// VoteStore keeps the votes table and the rating ledger on posts and
// comments in lock-step.
type VoteStore struct {
	db         *gorm.DB
	maxRetries int

	// attempt runs one transaction; tests swap it to inject failures.
	attempt func(ctx context.Context, a VoteAction) (VoteResult, error)
}

func NewVoteStore(db *gorm.DB, maxRetries int) *VoteStore {
	s := &VoteStore{db: db, maxRetries: maxRetries}
	s.attempt = s.applyOnce
	return s
}

// Apply runs the action as a single transaction: lock the target, read the
// voter's disposition, consult the transition table, move the rating and
// write or delete the vote row. Illegal actions return
// rating.ErrIllegalTransition and change nothing. Serialization failures
// are retried up to maxRetries times.
func (s *VoteStore) Apply(ctx context.Context, a VoteAction) (VoteResult, error) {
	if a.Kind.Table() == "" {
		return VoteResult{}, fmt.Errorf("%w: %q", ErrUnknownTarget, a.Kind)
	}

	logger := logging.FromContext(ctx)
	for tries := 0; ; tries++ {
		res, err := s.attempt(ctx, a)
		if err == nil || !isRetryable(err) || tries >= s.maxRetries {
			return res, err
		}
		if ctx.Err() != nil {
			return VoteResult{}, ctx.Err()
		}
		logger.WarnContext(ctx, "retrying vote transaction",
			"attempt", tries+1, "target_kind", a.Kind, "target_id", a.TargetID, "error", err)
	}
}

type ledgerRow struct {
	ID     int
	Rating int
}

func (s *VoteStore) applyOnce(ctx context.Context, a VoteAction) (VoteResult, error) {
	var res VoteResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table := a.Kind.Table()

		// Row lock on the target serializes every vote on it, which also
		// covers repeated votes by the same voter.
		var target ledgerRow
		if err := forUpdate(tx.Table(table).Select("id", "rating").Where("id = ?", a.TargetID)).
			Take(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTargetNotFound
			}
			return fmt.Errorf("locking %s %d: %w", a.Kind, a.TargetID, err)
		}

		var vote models.Vote
		found := true
		err := tx.Where("user_id = ? AND target_kind = ? AND target_id = ?", a.VoterID, a.Kind, a.TargetID).
			Take(&vote).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			found = false
		} else if err != nil {
			return fmt.Errorf("reading vote: %w", err)
		}

		current := rating.None
		if found {
			current = vote.Disposition
		}

		t, ok := rating.Decide(current, a.Button, a.Intent)
		if !ok {
			return rating.ErrIllegalTransition
		}

		if err := tx.Table(table).Where("id = ?", a.TargetID).
			UpdateColumn("rating", gorm.Expr("rating + ?", t.Delta)).Error; err != nil {
			return fmt.Errorf("applying rating delta: %w", err)
		}

		switch {
		case t.Next == rating.None:
			err = tx.Delete(&vote).Error
		case found:
			err = tx.Model(&vote).Update("disposition", t.Next).Error
		default:
			err = tx.Create(&models.Vote{
				UserID:      a.VoterID,
				TargetKind:  a.Kind,
				TargetID:    a.TargetID,
				Disposition: t.Next,
			}).Error
		}
		if err != nil {
			return fmt.Errorf("writing vote: %w", err)
		}

		var newRating int
		if err := tx.Table(table).Select("rating").Where("id = ?", a.TargetID).Row().Scan(&newRating); err != nil {
			return fmt.Errorf("reading rating: %w", err)
		}

		res = VoteResult{Previous: current, Transition: t, Rating: newRating}
		return nil
	})
	if err != nil {
		return VoteResult{}, err
	}
	return res, nil
}

// Dispositions returns the voter's standing on each of the given targets.
// Targets the voter has not voted on are absent from the map.
func (s *VoteStore) Dispositions(ctx context.Context, voterID int, kind models.TargetKind, ids []int) (map[int]rating.Disposition, error) {
	out := make(map[int]rating.Disposition, len(ids))
	if len(ids) == 0 || voterID <= 0 {
		return out, nil
	}

	var votes []models.Vote
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND target_kind = ? AND target_id IN ?", voterID, kind, ids).
		Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("listing votes: %w", err)
	}
	for _, v := range votes {
		out[v.TargetID] = v.Disposition
	}
	return out, nil
}

// forUpdate adds a row lock on dialects that support one. SQLite runs with a
// single connection, so its transactions are already serialized.
func forUpdate(q *gorm.DB) *gorm.DB {
	if q.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// LockTargets takes the same row locks a vote transaction takes on the given
// targets, so a vote cannot land between deleting a target's votes and
// deleting the target itself.
func LockTargets(tx *gorm.DB, kind models.TargetKind, ids []int) error {
	table := kind.Table()
	if table == "" {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, kind)
	}
	if len(ids) == 0 {
		return nil
	}
	var locked []int
	if err := forUpdate(tx.Table(table).Where("id IN ?", ids).Order("id")).Pluck("id", &locked).Error; err != nil {
		return fmt.Errorf("locking %s rows: %w", kind, err)
	}
	return nil
}

// DeleteTargetVotes removes every vote on the given targets. It runs on the
// caller's transaction when the target itself is being deleted.
func DeleteTargetVotes(tx *gorm.DB, kind models.TargetKind, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("target_kind = ? AND target_id IN ?", kind, ids).Delete(&models.Vote{}).Error; err != nil {
		return fmt.Errorf("deleting %s votes: %w", kind, err)
	}
	return nil
}

package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/rating"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres integration tests in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("forum"),
		tcpostgres.WithUsername("forum"),
		tcpostgres.WithPassword("forum"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	svc, err := Open(postgres.Open(dsn), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	health := svc.Health(ctx)
	require.Equal(t, "up", health["status"])

	return svc.GetDB()
}

func TestVoteStore_Postgres_ConcurrentVoters(t *testing.T) {
	db := setupPostgres(t)
	const n = 40
	users := seedUsers(t, db, n)
	post := seedPost(t, db, users[0].ID)
	store := NewVoteStore(db, 3)

	var g errgroup.Group
	for _, u := range users {
		g.Go(func() error {
			_, err := store.Apply(context.Background(), VoteAction{
				VoterID: u.ID, Kind: models.TargetPost, TargetID: post.ID,
				Button: rating.LikeButton, Intent: 1,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, n, ratingOf(t, db, models.TargetPost, post.ID))
	assert.Len(t, votesOn(t, db, models.TargetPost, post.ID), n)
}

func TestVoteStore_Postgres_ConcurrentFlips(t *testing.T) {
	db := setupPostgres(t)
	const n = 20
	users := seedUsers(t, db, n)
	post := seedPost(t, db, users[0].ID)
	store := NewVoteStore(db, 3)
	ctx := context.Background()

	// Everyone likes first, then everyone flips to dislike at once.
	for _, u := range users {
		_, err := store.Apply(ctx, VoteAction{VoterID: u.ID, Kind: models.TargetPost, TargetID: post.ID, Button: rating.LikeButton, Intent: 1})
		require.NoError(t, err)
	}

	var g errgroup.Group
	for _, u := range users {
		g.Go(func() error {
			_, err := store.Apply(ctx, VoteAction{
				VoterID: u.ID, Kind: models.TargetPost, TargetID: post.ID,
				Button: rating.DislikeButton, Intent: -2,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, -n, ratingOf(t, db, models.TargetPost, post.ID))
	votes := votesOn(t, db, models.TargetPost, post.ID)
	require.Len(t, votes, n)
	for _, v := range votes {
		assert.Equal(t, rating.Dislike, v.Disposition)
	}
}

func TestDeletePost_Postgres_VoteRacingDelete(t *testing.T) {
	db := setupPostgres(t)
	users := seedUsers(t, db, 2)
	post := seedPost(t, db, users[0].ID)
	comment := models.Comment{Body: "hi", AuthorID: users[0].ID, PostID: post.ID}
	require.NoError(t, db.Create(&comment).Error)
	store := NewVoteStore(db, 3)
	ctx := context.Background()

	// Hold the delete's locks while a vote on the comment is in flight.
	tx := db.WithContext(ctx).Begin()
	require.NoError(t, tx.Error)
	require.NoError(t, LockTargets(tx, models.TargetPost, []int{post.ID}))
	require.NoError(t, LockTargets(tx, models.TargetComment, []int{comment.ID}))

	voted := make(chan error, 1)
	go func() {
		_, err := store.Apply(ctx, VoteAction{
			VoterID: users[1].ID, Kind: models.TargetComment, TargetID: comment.ID,
			Button: rating.LikeButton, Intent: 1,
		})
		voted <- err
	}()

	select {
	case err := <-voted:
		t.Fatalf("vote finished while the comment was locked: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, DeleteTargetVotes(tx, models.TargetComment, []int{comment.ID}))
	require.NoError(t, tx.Delete(&models.Comment{}, comment.ID).Error)
	require.NoError(t, tx.Commit().Error)

	require.ErrorIs(t, <-voted, ErrTargetNotFound)
	assert.Empty(t, votesOn(t, db, models.TargetComment, comment.ID))

	require.NoError(t, DeletePost(ctx, db, post.ID))
	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Count(&posts).Error)
	assert.Zero(t, posts)
}

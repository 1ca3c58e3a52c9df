package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/emilythestrangee/forum/backend/internal/models"
)

// DeletePost removes a post, its comments and every vote on any of them in
// one transaction. The post and comment rows are locked first, so a vote
// racing the delete either commits before it (and is removed with the rest)
// or finds its target gone.
func DeletePost(ctx context.Context, db *gorm.DB, postID int) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := LockTargets(tx, models.TargetPost, []int{postID}); err != nil {
			return err
		}

		var commentIDs []int
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", postID).Order("id").Pluck("id", &commentIDs).Error; err != nil {
			return fmt.Errorf("listing comments: %w", err)
		}
		if err := LockTargets(tx, models.TargetComment, commentIDs); err != nil {
			return err
		}

		if err := DeleteTargetVotes(tx, models.TargetComment, commentIDs); err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("deleting comments: %w", err)
		}
		if err := DeleteTargetVotes(tx, models.TargetPost, []int{postID}); err != nil {
			return err
		}
		if err := tx.Delete(&models.Post{}, postID).Error; err != nil {
			return fmt.Errorf("deleting post: %w", err)
		}
		return nil
	})
}

// DeleteComment removes a comment and its votes.
func DeleteComment(ctx context.Context, db *gorm.DB, commentID int) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := LockTargets(tx, models.TargetComment, []int{commentID}); err != nil {
			return err
		}
		if err := DeleteTargetVotes(tx, models.TargetComment, []int{commentID}); err != nil {
			return err
		}
		if err := tx.Delete(&models.Comment{}, commentID).Error; err != nil {
			return fmt.Errorf("deleting comment: %w", err)
		}
		return nil
	})
}

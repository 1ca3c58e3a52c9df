package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/forum/backend/internal/database"
	"github.com/emilythestrangee/forum/backend/internal/logging"
	"github.com/emilythestrangee/forum/backend/internal/middleware"
	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/rating"
)

type CommentHandler struct {
	db    *gorm.DB
	votes *database.VoteStore
}

func NewCommentHandler(db *gorm.DB, votes *database.VoteStore) *CommentHandler {
	return &CommentHandler{db: db, votes: votes}
}

func commentResponse(comment models.Comment, myVote rating.Disposition) gin.H {
	return gin.H{
		"id":               comment.ID,
		"body":             comment.Body,
		"author_id":        comment.AuthorID,
		"author":           comment.Author,
		"post_id":          comment.PostID,
		"rating":           comment.Rating,
		"rating_formatted": rating.Format(comment.Rating),
		"my_vote":          myVote.String(),
		"created_at":       comment.CreatedAt,
		"updated_at":       comment.UpdatedAt,
	}
}

// GetComments returns all comments for a post, best rated first
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID, ok := h.existingPostID(c)
	if !ok {
		return
	}

	var comments []models.Comment
	if err := h.db.WithContext(c.Request.Context()).
		Where("post_id = ?", postID).
		Preload("Author").
		Order("rating desc").Order("created_at asc").
		Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	ids := make([]int, len(comments))
	for i, cm := range comments {
		ids[i] = cm.ID
	}
	mine, err := h.votes.Dispositions(c.Request.Context(), middleware.Identity(c).UserID, models.TargetComment, ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	responses := make([]gin.H, 0, len(comments))
	for _, comment := range comments {
		responses = append(responses, commentResponse(comment, mine[comment.ID]))
	}

	c.JSON(http.StatusOK, responses)
}

// CreateComment creates a new comment on a post
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	postID, ok := h.existingPostID(c)
	if !ok {
		return
	}

	comment := models.Comment{
		Body:     input.Body,
		PostID:   postID,
		AuthorID: middleware.Identity(c).UserID,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&comment).Error; err != nil {
		logging.FromContext(c.Request.Context()).Error("failed to create comment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	h.db.WithContext(c.Request.Context()).Preload("Author").First(&comment, comment.ID)
	c.JSON(http.StatusCreated, commentResponse(comment, rating.None))
}

// UpdateComment updates a comment (owner only)
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, ok := h.findComment(c)
	if !ok {
		return
	}

	if comment.AuthorID != middleware.Identity(c).UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own comments"})
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Model(&comment).Update("body", input.Body).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
		return
	}

	h.db.WithContext(c.Request.Context()).Preload("Author").First(&comment, comment.ID)
	mine, err := h.votes.Dispositions(c.Request.Context(), comment.AuthorID, models.TargetComment, []int{comment.ID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comment"})
		return
	}
	c.JSON(http.StatusOK, commentResponse(comment, mine[comment.ID]))
}

// DeleteComment deletes a comment and its votes (owner only)
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	comment, ok := h.findComment(c)
	if !ok {
		return
	}

	if comment.AuthorID != middleware.Identity(c).UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own comments"})
		return
	}

	if err := database.DeleteComment(c.Request.Context(), h.db, comment.ID); err != nil {
		logging.FromContext(c.Request.Context()).Error("failed to delete comment", "comment_id", comment.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

func (h *CommentHandler) existingPostID(c *gin.Context) (int, bool) {
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil || postID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return 0, false
	}

	var count int64
	if err := h.db.WithContext(c.Request.Context()).Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return 0, false
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return 0, false
	}
	return postID, true
}

func (h *CommentHandler) findComment(c *gin.Context) (models.Comment, bool) {
	var comment models.Comment

	id, err := strconv.Atoi(c.Param("commentId"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment ID"})
		return comment, false
	}

	err = h.db.WithContext(c.Request.Context()).First(&comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return comment, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comment"})
		return comment, false
	}
	return comment, true
}

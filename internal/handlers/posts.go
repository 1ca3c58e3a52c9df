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

type PostHandler struct {
	db    *gorm.DB
	votes *database.VoteStore
}

func NewPostHandler(db *gorm.DB, votes *database.VoteStore) *PostHandler {
	return &PostHandler{db: db, votes: votes}
}

func postResponse(post models.Post, myVote rating.Disposition) gin.H {
	return gin.H{
		"id":               post.ID,
		"title":            post.Title,
		"body":             post.Body,
		"author_id":        post.AuthorID,
		"author":           post.Author,
		"rating":           post.Rating,
		"rating_formatted": rating.Format(post.Rating),
		"my_vote":          myVote.String(),
		"created_at":       post.CreatedAt,
		"updated_at":       post.UpdatedAt,
	}
}

// GetPosts returns the popularity-ranked feed: highest rating first, newest
// first among equals.
func (h *PostHandler) GetPosts(c *gin.Context) {
	var posts []models.Post
	if err := h.db.WithContext(c.Request.Context()).
		Preload("Author").
		Order("rating desc").Order("created_at desc").Order("id desc").
		Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	ids := make([]int, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	mine, err := h.votes.Dispositions(c.Request.Context(), middleware.Identity(c).UserID, models.TargetPost, ids)
	if err != nil {
		logging.FromContext(c.Request.Context()).Error("failed to load votes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	responses := make([]gin.H, 0, len(posts))
	for _, post := range posts {
		responses = append(responses, postResponse(post, mine[post.ID]))
	}

	c.JSON(http.StatusOK, responses)
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	post, ok := h.findPost(c)
	if !ok {
		return
	}

	mine, err := h.votes.Dispositions(c.Request.Context(), middleware.Identity(c).UserID, models.TargetPost, []int{post.ID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}

	c.JSON(http.StatusOK, postResponse(post, mine[post.ID]))
}

// CreatePost creates a new post (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	post := models.Post{
		Title:    input.Title,
		Body:     input.Body,
		AuthorID: middleware.Identity(c).UserID,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&post).Error; err != nil {
		logging.FromContext(c.Request.Context()).Error("failed to create post", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	h.db.WithContext(c.Request.Context()).Preload("Author").First(&post, post.ID)
	c.JSON(http.StatusCreated, postResponse(post, rating.None))
}

// UpdatePost updates an existing post (PROTECTED - requires ownership)
func (h *PostHandler) UpdatePost(c *gin.Context) {
	var input models.UpdatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, ok := h.findPost(c)
	if !ok {
		return
	}

	if post.AuthorID != middleware.Identity(c).UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own posts"})
		return
	}

	updates := map[string]interface{}{}
	if input.Title != "" {
		updates["title"] = input.Title
	}
	if input.Body != "" {
		updates["body"] = input.Body
	}
	if len(updates) > 0 {
		// Only title and body; the rating column belongs to the vote store.
		if err := h.db.WithContext(c.Request.Context()).Model(&post).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
			return
		}
	}

	h.db.WithContext(c.Request.Context()).Preload("Author").First(&post, post.ID)
	mine, err := h.votes.Dispositions(c.Request.Context(), post.AuthorID, models.TargetPost, []int{post.ID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}
	c.JSON(http.StatusOK, postResponse(post, mine[post.ID]))
}

// DeletePost deletes a post with its comments and every vote on either
// (PROTECTED - requires ownership)
func (h *PostHandler) DeletePost(c *gin.Context) {
	post, ok := h.findPost(c)
	if !ok {
		return
	}

	if post.AuthorID != middleware.Identity(c).UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own posts"})
		return
	}

	err := database.DeletePost(c.Request.Context(), h.db, post.ID)
	if err != nil {
		logging.FromContext(c.Request.Context()).Error("failed to delete post", "post_id", post.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func (h *PostHandler) findPost(c *gin.Context) (models.Post, bool) {
	var post models.Post

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return post, false
	}

	err = h.db.WithContext(c.Request.Context()).Preload("Author").First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return post, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return post, false
	}
	return post, true
}

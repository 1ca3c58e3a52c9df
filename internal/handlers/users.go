package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/rating"
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// GetUserProfile returns a user's profile with their posts and the sum of
// their posts' ratings.
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var posts []models.Post
	if err := h.db.WithContext(c.Request.Context()).
		Where("author_id = ?", user.ID).
		Order("created_at desc").
		Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user posts"})
		return
	}

	karma := 0
	items := make([]gin.H, 0, len(posts))
	for _, p := range posts {
		karma += p.Rating
		items = append(items, gin.H{
			"id":               p.ID,
			"title":            p.Title,
			"rating":           p.Rating,
			"rating_formatted": rating.Format(p.Rating),
			"created_at":       p.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"user":            user,
		"posts":           items,
		"karma":           karma,
		"karma_formatted": rating.Format(karma),
	})
}

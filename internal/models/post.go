package models

import "time"

type Post struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `json:"body"`
	AuthorID  int       `gorm:"index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
	Rating    int       `gorm:"not null;default:0;index" json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreatePostRequest struct {
	Title string `json:"title" binding:"required,max=300"`
	Body  string `json:"body"`
}

type UpdatePostRequest struct {
	Title string `json:"title" binding:"max=300"`
	Body  string `json:"body"`
}

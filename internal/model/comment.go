package model

import "time"

// Comment mirrors the 'comments' table and follows the same ownership and
// version rules as Post.
type Comment struct {
	ID          int64
	PostID      int64
	Content     string
	Status      Status
	Stars       int
	Views       int
	Version     int
	CreatedUser string
	UpdatedUser string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

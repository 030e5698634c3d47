package model

import "time"

// Post mirrors the 'posts' table. ReferenceID points at the post this one
// re-shares, when set. CreatedUser is the owning user's public id; only the
// owner may edit or delete the post. Stars and Views are version-guarded
// counters.
type Post struct {
	ID          int64
	Content     string
	ReferenceID *int64
	Status      Status
	Stars       int
	Views       int
	Version     int
	CreatedUser string
	UpdatedUser string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

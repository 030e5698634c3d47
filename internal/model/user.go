package model

import "time"

// User mirrors the 'users' table. UserID is the public, caller-chosen handle;
// ID is the internal auto-increment key. The counter columns (Views,
// Followers, Followings) are guarded by Version: every counter write carries
// the version it read and the row is only touched when it still matches.
type User struct {
	ID           int64
	UserID       string
	Email        string
	PasswordHash string
	Role         string
	Description  string
	Views        int
	Followers    int
	Followings   int
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleUser is the default role claim granted at signup. Root accounts are
// provisioned out of band.
const (
	RoleUser = "user"
	RoleRoot = "root"
)

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/leduoyang/connect-backend/internal/model"
)

type PostRepo struct{ DB *sql.DB }

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{DB: db} }

const postColumns = "id,content,reference_id,status,stars,views,version,created_user,updated_user,created_at,updated_at"

// Create inserts a post and returns its id.
func (r *PostRepo) Create(ctx context.Context, p model.Post) (int64, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO posts (content,reference_id,status,stars,views,version,created_user,updated_user,created_at,updated_at) VALUES (?,?,?,0,0,0,?,?,?,?)",
		p.Content, p.ReferenceID, int(p.Status), p.CreatedUser, p.CreatedUser, now, now)
	if err != nil {
		return 0, err
	}
	if err := affected(res, ErrCreateFailed); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID fetches a post by id. Soft-deleted posts are invisible.
func (r *PostRepo) GetByID(ctx context.Context, id int64) (model.Post, error) {
	var p model.Post
	var status int
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id=? AND status<>? LIMIT 1",
		id, int(model.StatusDeleted)).
		Scan(&p.ID, &p.Content, &p.ReferenceID, &status, &p.Stars, &p.Views,
			&p.Version, &p.CreatedUser, &p.UpdatedUser, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Post{}, ErrNotFound
	}
	p.Status = model.Status(status)
	return p, err
}

// Query lists posts filtered by creator and/or content keyword. Empty
// filters match everything. Deleted posts never appear.
func (r *PostRepo) Query(ctx context.Context, userID, keyword string) ([]model.Post, error) {
	q := "SELECT " + postColumns + " FROM posts WHERE status<>?"
	args := []interface{}{int(model.StatusDeleted)}
	if userID != "" {
		q += " AND created_user=?"
		args = append(args, userID)
	}
	if keyword != "" {
		q += " AND content LIKE ?"
		args = append(args, "%"+keyword+"%")
	}
	q += " ORDER BY id DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Post
	for rows.Next() {
		var p model.Post
		var status int
		if err := rows.Scan(&p.ID, &p.Content, &p.ReferenceID, &status, &p.Stars, &p.Views,
			&p.Version, &p.CreatedUser, &p.UpdatedUser, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Status = model.Status(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update edits content and status. The actor must own the post; an absent
// post and a post owned by someone else both surface ErrNotFound. The write
// carries the version the caller read, so a concurrent edit between the
// ownership check and the write surfaces ErrUpdateFailed instead of silently
// overwriting.
func (r *PostRepo) Update(ctx context.Context, id int64, actorID, content string, status model.Status, version int) error {
	if ok, err := r.owned(ctx, id, actorID); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE posts SET content=?, status=?, updated_user=?, version=version+1, updated_at=? WHERE id=? AND created_user=? AND version=?",
		content, int(status), actorID, time.Now().UTC(), id, actorID, version)
	if err != nil {
		return err
	}
	return affected(res, ErrUpdateFailed)
}

// IncrementViews bumps the view counter under the version guard.
func (r *PostRepo) IncrementViews(ctx context.Context, id int64, version int) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE posts SET views=views+1, version=version+1, updated_at=? WHERE id=? AND version=? AND status<>?",
		time.Now().UTC(), id, version, int(model.StatusDeleted))
	if err != nil {
		return err
	}
	return affected(res, ErrUpdateFailed)
}

// RefreshStars replaces the star count under the version guard.
func (r *PostRepo) RefreshStars(ctx context.Context, id int64, version, stars int) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE posts SET stars=?, version=version+1, updated_at=? WHERE id=? AND version=? AND status<>?",
		stars, time.Now().UTC(), id, version, int(model.StatusDeleted))
	if err != nil {
		return err
	}
	return affected(res, ErrUpdateFailed)
}

// Delete soft-deletes a post owned by the actor.
func (r *PostRepo) Delete(ctx context.Context, id int64, actorID string) error {
	if ok, err := r.owned(ctx, id, actorID); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE posts SET status=?, updated_user=?, version=version+1, updated_at=? WHERE id=? AND created_user=? AND status<>?",
		int(model.StatusDeleted), actorID, time.Now().UTC(), id, actorID, int(model.StatusDeleted))
	if err != nil {
		return err
	}
	return affected(res, ErrDeleteFailed)
}

// owned reports whether a live post with this id belongs to the actor.
// Absent and not-owned are indistinguishable on purpose.
func (r *PostRepo) owned(ctx context.Context, id int64, actorID string) (bool, error) {
	var ok bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM posts WHERE id=? AND created_user=? AND status<>?)",
		id, actorID, int(model.StatusDeleted)).Scan(&ok)
	return ok, err
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/leduoyang/connect-backend/internal/model"
)

type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

const commentColumns = "id,post_id,content,status,stars,views,version,created_user,updated_user,created_at,updated_at"

// Create inserts a comment and returns its id. The referenced post must be
// visible; commenting on an absent or deleted post surfaces ErrNotFound.
func (r *CommentRepo) Create(ctx context.Context, cm model.Comment) (int64, error) {
	var postOK bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM posts WHERE id=? AND status<>?)",
		cm.PostID, int(model.StatusDeleted)).Scan(&postOK)
	if err != nil {
		return 0, err
	}
	if !postOK {
		return 0, ErrNotFound
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (post_id,content,status,stars,views,version,created_user,updated_user,created_at,updated_at) VALUES (?,?,?,0,0,0,?,?,?,?)",
		cm.PostID, cm.Content, int(cm.Status), cm.CreatedUser, cm.CreatedUser, now, now)
	if err != nil {
		return 0, err
	}
	if err := affected(res, ErrCreateFailed); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID fetches a comment by id, excluding soft-deleted ones.
func (r *CommentRepo) GetByID(ctx context.Context, id int64) (model.Comment, error) {
	var cm model.Comment
	var status int
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE id=? AND status<>? LIMIT 1",
		id, int(model.StatusDeleted)).
		Scan(&cm.ID, &cm.PostID, &cm.Content, &status, &cm.Stars, &cm.Views,
			&cm.Version, &cm.CreatedUser, &cm.UpdatedUser, &cm.CreatedAt, &cm.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Comment{}, ErrNotFound
	}
	cm.Status = model.Status(status)
	return cm, err
}

// ListByPost returns the live comments under a post, oldest first.
func (r *CommentRepo) ListByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE post_id=? AND status<>? ORDER BY id",
		postID, int(model.StatusDeleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Comment
	for rows.Next() {
		var cm model.Comment
		var status int
		if err := rows.Scan(&cm.ID, &cm.PostID, &cm.Content, &status, &cm.Stars, &cm.Views,
			&cm.Version, &cm.CreatedUser, &cm.UpdatedUser, &cm.CreatedAt, &cm.UpdatedAt); err != nil {
			return nil, err
		}
		cm.Status = model.Status(status)
		out = append(out, cm)
	}
	return out, rows.Err()
}

// Update edits a comment the actor owns, guarded by the version it read.
func (r *CommentRepo) Update(ctx context.Context, id int64, actorID, content string, status model.Status, version int) error {
	if ok, err := r.owned(ctx, id, actorID); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE comments SET content=?, status=?, updated_user=?, version=version+1, updated_at=? WHERE id=? AND created_user=? AND version=?",
		content, int(status), actorID, time.Now().UTC(), id, actorID, version)
	if err != nil {
		return err
	}
	return affected(res, ErrUpdateFailed)
}

// IncrementViews bumps the view counter under the version guard.
func (r *CommentRepo) IncrementViews(ctx context.Context, id int64, version int) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE comments SET views=views+1, version=version+1, updated_at=? WHERE id=? AND version=? AND status<>?",
		time.Now().UTC(), id, version, int(model.StatusDeleted))
	if err != nil {
		return err
	}
	return affected(res, ErrUpdateFailed)
}

// RefreshStars replaces the star count under the version guard.
func (r *CommentRepo) RefreshStars(ctx context.Context, id int64, version, stars int) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE comments SET stars=?, version=version+1, updated_at=? WHERE id=? AND version=? AND status<>?",
		stars, time.Now().UTC(), id, version, int(model.StatusDeleted))
	if err != nil {
		return err
	}
	return affected(res, ErrUpdateFailed)
}

// Delete soft-deletes a comment owned by the actor.
func (r *CommentRepo) Delete(ctx context.Context, id int64, actorID string) error {
	if ok, err := r.owned(ctx, id, actorID); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE comments SET status=?, updated_user=?, version=version+1, updated_at=? WHERE id=? AND created_user=? AND status<>?",
		int(model.StatusDeleted), actorID, time.Now().UTC(), id, actorID, int(model.StatusDeleted))
	if err != nil {
		return err
	}
	return affected(res, ErrDeleteFailed)
}

func (r *CommentRepo) owned(ctx context.Context, id int64, actorID string) (bool, error) {
	var ok bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM comments WHERE id=? AND created_user=? AND status<>?)",
		id, actorID, int(model.StatusDeleted)).Scan(&ok)
	return ok, err
}

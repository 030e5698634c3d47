package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/leduoyang/connect-backend/internal/model"
	"github.com/leduoyang/connect-backend/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,user_id,email,password_hash,role,description,views,followers,followings,version,created_at,updated_at"

// Create inserts a new user and returns the row id. The user id and email
// must both be unused; a violated precondition surfaces ErrAlreadyExists and
// performs no insert. Zero affected rows after the precheck passed is an
// infrastructure anomaly reported as ErrCreateFailed.
func (r *UserRepo) Create(ctx context.Context, userID, email, password string, cost int) (int64, error) {
	userID = strings.TrimSpace(userID)
	email = strings.ToLower(strings.TrimSpace(email))

	var taken bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE user_id=? OR email=?)",
		userID, email).Scan(&taken)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, ErrAlreadyExists
	}

	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (user_id,email,password_hash,role,description,views,followers,followings,version,created_at,updated_at) VALUES (?,?,?,?,?,0,0,0,0,?,?)",
		userID, email, hash, model.RoleUser, "", now, now)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, ErrCreateFailed
	}
	return res.LastInsertId()
}

// PasswordHash returns the stored hash for the credential verifier. A missing
// user propagates sql.ErrNoRows, which the verifier treats the same as a
// mismatch.
func (r *UserRepo) PasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := r.DB.QueryRowContext(ctx,
		"SELECT password_hash FROM users WHERE user_id=? LIMIT 1",
		strings.TrimSpace(userID)).Scan(&hash)
	return hash, err
}

// GetByUserID fetches a user by public id.
func (r *UserRepo) GetByUserID(ctx context.Context, userID string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE user_id=? LIMIT 1", userID).
		Scan(&u.ID, &u.UserID, &u.Email, &u.PasswordHash, &u.Role, &u.Description,
			&u.Views, &u.Followers, &u.Followings, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// Search returns users whose id or description contains the keyword.
func (r *UserRepo) Search(ctx context.Context, keyword string) ([]model.User, error) {
	like := "%" + keyword + "%"
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE user_id LIKE ? OR description LIKE ? ORDER BY user_id", like, like)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.UserID, &u.Email, &u.PasswordHash, &u.Role, &u.Description,
			&u.Views, &u.Followers, &u.Followings, &u.Version, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Edit updates the actor's own email and description. The target is always
// the acting user, so the existence check doubles as the ownership check.
func (r *UserRepo) Edit(ctx context.Context, actorID, email, description string) error {
	if ok, err := r.exists(ctx, actorID); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email=?, description=?, updated_at=? WHERE user_id=?",
		strings.ToLower(strings.TrimSpace(email)), description, time.Now().UTC(), actorID)
	if err != nil {
		return err
	}
	return affected(res, ErrUpdateFailed)
}

// IncrementViews bumps the profile view counter. The caller supplies the
// version it read; a stale version leaves the row untouched and surfaces
// ErrUpdateFailed.
func (r *UserRepo) IncrementViews(ctx context.Context, userID string, version int) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET views=views+1, version=version+1, updated_at=? WHERE user_id=? AND version=?",
		time.Now().UTC(), userID, version)
	if err != nil {
		return err
	}
	return affected(res, ErrUpdateFailed)
}

// RefreshFollowers replaces the follower count under the version guard.
func (r *UserRepo) RefreshFollowers(ctx context.Context, userID string, version, followers int) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET followers=?, version=version+1, updated_at=? WHERE user_id=? AND version=?",
		followers, time.Now().UTC(), userID, version)
	if err != nil {
		return err
	}
	return affected(res, ErrUpdateFailed)
}

// RefreshFollowings replaces the following count under the version guard.
func (r *UserRepo) RefreshFollowings(ctx context.Context, userID string, version, followings int) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET followings=?, version=version+1, updated_at=? WHERE user_id=? AND version=?",
		followings, time.Now().UTC(), userID, version)
	if err != nil {
		return err
	}
	return affected(res, ErrUpdateFailed)
}

// Delete removes the user row. Callers enforce that only the user themselves
// (or root, outside this core) reaches here.
func (r *UserRepo) Delete(ctx context.Context, userID string) error {
	if ok, err := r.exists(ctx, userID); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE user_id=?", userID)
	if err != nil {
		return err
	}
	return affected(res, ErrDeleteFailed)
}

func (r *UserRepo) exists(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE user_id=?)", userID).Scan(&ok)
	return ok, err
}

// affected maps a zero affected-row count to the given failure kind.
func affected(res sql.Result, kind error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return kind
	}
	return nil
}

package router

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/leduoyang/connect-backend/internal/auth"
	"github.com/leduoyang/connect-backend/internal/config"
	"github.com/leduoyang/connect-backend/internal/handler"
	"github.com/leduoyang/connect-backend/internal/repository"
	"github.com/leduoyang/connect-backend/internal/service"
)

const testSchema = `
CREATE TABLE users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	views         INTEGER NOT NULL DEFAULT 0,
	followers     INTEGER NOT NULL DEFAULT 0,
	followings    INTEGER NOT NULL DEFAULT 0,
	version       INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);
CREATE TABLE posts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	content       TEXT NOT NULL,
	reference_id  INTEGER,
	status        INTEGER NOT NULL DEFAULT 0,
	stars         INTEGER NOT NULL DEFAULT 0,
	views         INTEGER NOT NULL DEFAULT 0,
	version       INTEGER NOT NULL DEFAULT 0,
	created_user  TEXT NOT NULL,
	updated_user  TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);
CREATE TABLE comments (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id       INTEGER NOT NULL,
	content       TEXT NOT NULL,
	status        INTEGER NOT NULL DEFAULT 0,
	stars         INTEGER NOT NULL DEFAULT 0,
	views         INTEGER NOT NULL DEFAULT 0,
	version       INTEGER NOT NULL DEFAULT 0,
	created_user  TEXT NOT NULL,
	updated_user  TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);
`

// newTestServer wires the real gate, router, handlers and repositories over
// an in-memory database. Redis and the broker are absent, so caching, rate
// limiting and counter events are no-ops.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", t.Name())
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{BcryptCost: bcrypt.MinCost}
	users := repository.NewUserRepo(db)
	posts := repository.NewPostRepo(db)
	comments := repository.NewCommentRepo(db)
	codec := auth.NewCodec("test-secret", time.Hour)
	pub := &service.Publisher{}

	e := echo.New()
	Register(e, codec, nil,
		handler.NewAuthHandler(cfg, users, codec, auth.NewVerifier(users)),
		handler.NewUserHandler(users, pub),
		handler.NewPostHandler(posts, pub),
		handler.NewCommentHandler(comments, pub),
	)
	return e
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", auth.Scheme+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func signUpAndIn(t *testing.T, e *echo.Echo, userID string) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/api/connect/v1/public/user/signup", "",
		fmt.Sprintf(`{"user_id":%q,"email":"%s@example.com","password":"pw"}`, userID, userID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(e, http.MethodPost, "/api/connect/v1/public/user/signin", "",
		fmt.Sprintf(`{"user_id":%q,"password":"pw"}`, userID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestSignUpSignInFlow(t *testing.T) {
	e := newTestServer(t)

	token := signUpAndIn(t, e, "u1")

	// Duplicate signup with a different email conflicts.
	rec := do(e, http.MethodPost, "/api/connect/v1/public/user/signup", "",
		`{"user_id":"u1","email":"second@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Wrong password and unknown user produce identical 401s.
	bad := do(e, http.MethodPost, "/api/connect/v1/public/user/signin", "",
		`{"user_id":"u1","password":"nope"}`)
	unknown := do(e, http.MethodPost, "/api/connect/v1/public/user/signin", "",
		`{"user_id":"ghost","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, bad.Body.String(), unknown.Body.String())

	// The token works on the protected surface.
	rec = do(e, http.MethodGet, "/api/connect/v1/users/me", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"u1"`)

	// Without it, the gate rejects.
	rec = do(e, http.MethodGet, "/api/connect/v1/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	e := newTestServer(t)
	signUpAndIn(t, e, "u1")

	expired, err := auth.NewCodec("test-secret", -time.Hour).Issue("u1", []string{"user"})
	require.NoError(t, err)

	rec := do(e, http.MethodGet, "/api/connect/v1/users/me", expired, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	e := newTestServer(t)
	u1 := signUpAndIn(t, e, "u1")
	u2 := signUpAndIn(t, e, "u2")

	rec := do(e, http.MethodPost, "/api/connect/v1/post", u1,
		`{"content":"first post","status":0}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/connect/v1/post/%d", created.ID)

	// Guests can read the public post through the public surface.
	rec = do(e, http.MethodGet, fmt.Sprintf("/api/connect/v1/public/post/%d", created.ID), "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// A non-owner edit looks like a missing post.
	rec = do(e, http.MethodPatch, path, u2, `{"content":"hijack","status":0,"version":0}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Owner edit with the read version succeeds once.
	rec = do(e, http.MethodPatch, path, u1, `{"content":"edited","status":0,"version":0}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Replaying the same version is refused.
	rec = do(e, http.MethodPatch, path, u1, `{"content":"stale","status":0,"version":0}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "retry")

	rec = do(e, http.MethodDelete, path, u1, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, http.MethodGet, path, u1, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrivatePostHiddenFromOthers(t *testing.T) {
	e := newTestServer(t)
	u1 := signUpAndIn(t, e, "u1")
	u2 := signUpAndIn(t, e, "u2")

	rec := do(e, http.MethodPost, "/api/connect/v1/post", u1,
		`{"content":"my diary","status":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/connect/v1/post/%d", created.ID)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, path, u1, "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, path, u2, "").Code)
	assert.Equal(t, http.StatusNotFound,
		do(e, http.MethodGet, fmt.Sprintf("/api/connect/v1/public/post/%d", created.ID), "", "").Code)
}

func TestCommentOverHTTP(t *testing.T) {
	e := newTestServer(t)
	u1 := signUpAndIn(t, e, "u1")
	u2 := signUpAndIn(t, e, "u2")

	rec := do(e, http.MethodPost, "/api/connect/v1/post", u1, `{"content":"parent","status":0}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var post struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))

	rec = do(e, http.MethodPost, "/api/connect/v1/comment", u2,
		fmt.Sprintf(`{"post_id":%d,"content":"nice","status":0}`, post.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(e, http.MethodGet, fmt.Sprintf("/api/connect/v1/comments?postId=%d", post.ID), u1, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"nice"`)

	// Commenting on a missing post is a 404.
	rec = do(e, http.MethodPost, "/api/connect/v1/comment", u2,
		`{"post_id":9999,"content":"orphan","status":0}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUserRequiresSelf(t *testing.T) {
	e := newTestServer(t)
	u1 := signUpAndIn(t, e, "u1")
	signUpAndIn(t, e, "u2")

	// Deleting someone else's account looks like a missing account.
	rec := do(e, http.MethodDelete, "/api/connect/v1/user/u2", u1, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodDelete, "/api/connect/v1/user/u1", u1, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// The deleted user's credentials no longer work.
	rec = do(e, http.MethodPost, "/api/connect/v1/public/user/signin", "",
		`{"user_id":"u1","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

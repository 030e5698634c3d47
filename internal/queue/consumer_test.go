package queue

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/leduoyang/connect-backend/internal/model"
	"github.com/leduoyang/connect-backend/internal/repository"
)

func newConsumer(t *testing.T) (*Consumer, *repository.PostRepo) {
	t.Helper()
	db, err := sql.Open("sqlite", fmt.Sprintf("file:queue_%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`
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
);`)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	posts := repository.NewPostRepo(db)
	return &Consumer{Posts: posts}, posts
}

func TestApplyIncrementsViews(t *testing.T) {
	c, posts := newConsumer(t)
	ctx := context.Background()

	id, err := posts.Create(ctx, model.Post{Content: "p", Status: model.StatusPublic, CreatedUser: "u1"})
	require.NoError(t, err)

	// Each event re-reads the current version, so repeated events converge
	// even though every write bumps the version.
	for i := 0; i < 3; i++ {
		require.NoError(t, c.apply(ctx, CounterEvent{Entity: EntityPost, ID: id, Field: FieldViews}))
	}

	p, err := posts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Views)
	assert.Equal(t, 3, p.Version)
}

func TestApplyRefreshesStars(t *testing.T) {
	c, posts := newConsumer(t)
	ctx := context.Background()

	id, err := posts.Create(ctx, model.Post{Content: "p", Status: model.StatusPublic, CreatedUser: "u1"})
	require.NoError(t, err)

	require.NoError(t, c.apply(ctx, CounterEvent{Entity: EntityPost, ID: id, Field: FieldStars, Delta: 1}))
	require.NoError(t, c.apply(ctx, CounterEvent{Entity: EntityPost, ID: id, Field: FieldStars, Delta: -5}))

	p, err := posts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stars, "star count never goes negative")
}

func TestApplyDropsEventsForMissingRecords(t *testing.T) {
	c, _ := newConsumer(t)

	// A record deleted after the event was published makes the event
	// obsolete, not poisonous.
	assert.NoError(t, c.apply(context.Background(),
		CounterEvent{Entity: EntityPost, ID: 9999, Field: FieldViews}))
}

func TestApplyRejectsUnknownEvents(t *testing.T) {
	c, _ := newConsumer(t)
	assert.Error(t, c.apply(context.Background(), CounterEvent{Entity: "widget", Field: "spins"}))
}

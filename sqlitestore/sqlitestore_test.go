package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogsync"
	"github.com/hypergopher/blogsync/sqlitestore"
)

func newStore(t *testing.T) *sqlitestore.SQLiteStore {
	t.Helper()
	db, err := sqlitestore.Open(filepath.Join(t.TempDir(), "blogsync.sqlite"))
	require.NoError(t, err)

	store := sqlitestore.New(db)
	require.NoError(t, store.Init())
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testPost(slug, title string, category blogsync.Category, age time.Duration) *blogsync.Post {
	content, _ := blogsync.ParseMarkdown("Body of " + title)
	return &blogsync.Post{
		ID:        1,
		Slug:      slug,
		Title:     title,
		Category:  category,
		Content:   content,
		CreatedAt: time.Now().Add(-age).UTC().Truncate(time.Second),
	}
}

func TestSQLiteStore_DraftSlot(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.LoadDraft(ctx)
	require.ErrorIs(t, err, blogsync.ErrDraftNotFound)

	d := &blogsync.Draft{
		Title:       "Hello",
		Description: "A greeting",
		Category:    blogsync.CategoryTech,
		Content:     "Some body",
	}
	require.NoError(t, store.SaveDraft(ctx, d))

	loaded, err := store.LoadDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, d.Title, loaded.Title)

	d.Title = "Rewritten"
	require.NoError(t, store.SaveDraft(ctx, d))
	loaded, err = store.LoadDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rewritten", loaded.Title)

	require.NoError(t, store.DeleteDraft(ctx))
	require.NoError(t, store.DeleteDraft(ctx))
	_, err = store.LoadDraft(ctx)
	require.ErrorIs(t, err, blogsync.ErrDraftNotFound)
}

func TestSQLiteStore_CredentialSlot(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.LoadCredential(ctx)
	require.ErrorIs(t, err, blogsync.ErrNoCredential)

	cred := &blogsync.Credential{
		Token:     "tok-123",
		ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveCredential(ctx, cred))

	loaded, err := store.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred.Token, loaded.Token)
	assert.True(t, cred.ExpiresAt.Equal(loaded.ExpiresAt))

	require.NoError(t, store.DeleteCredential(ctx))
	_, err = store.LoadCredential(ctx)
	require.ErrorIs(t, err, blogsync.ErrNoCredential)
}

func TestSQLiteStore_ArchiveRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.ArchivedPost(ctx, "missing")
	require.ErrorIs(t, err, blogsync.ErrPostNotFound)

	p := testPost("go-intro", "Intro to Go", blogsync.CategoryTech, time.Hour)
	require.NoError(t, store.ArchivePost(ctx, p))

	loaded, err := store.ArchivedPost(ctx, "go-intro")
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", loaded.Title)

	p.Title = "Intro to Go, Revised"
	require.NoError(t, store.ArchivePost(ctx, p))
	loaded, err = store.ArchivedPost(ctx, "go-intro")
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go, Revised", loaded.Title)
}

func TestSQLiteStore_SearchArchive(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.ArchivePost(ctx, testPost("go-intro", "Intro to Go", blogsync.CategoryTech, time.Hour)))
	require.NoError(t, store.ArchivePost(ctx, testPost("sourdough", "Sourdough Basics", blogsync.CategoryFood, 2*time.Hour)))
	require.NoError(t, store.ArchivePost(ctx, testPost("go-generics", "Generics in Go", blogsync.CategoryTech, time.Minute)))

	// Substring search, newest first.
	posts, err := store.SearchArchive(ctx, blogsync.ArchiveFilter{Search: "Go"})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "go-generics", posts[0].Slug)
	assert.Equal(t, "go-intro", posts[1].Slug)

	posts, err = store.SearchArchive(ctx, blogsync.ArchiveFilter{Category: blogsync.CategoryFood})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "sourdough", posts[0].Slug)

	posts, err = store.SearchArchive(ctx, blogsync.ArchiveFilter{Search: "Go", Category: blogsync.CategoryFood})
	require.NoError(t, err)
	assert.Empty(t, posts)

	posts, err = store.SearchArchive(ctx, blogsync.ArchiveFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	require.NoError(t, store.ClearArchive(ctx))
	posts, err = store.SearchArchive(ctx, blogsync.ArchiveFilter{})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

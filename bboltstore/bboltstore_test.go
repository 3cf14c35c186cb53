package bboltstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogsync"
	"github.com/hypergopher/blogsync/bboltstore"
)

func newStore(t *testing.T) *bboltstore.BBoltStore {
	t.Helper()
	store := bboltstore.New(t.TempDir(), nil)
	require.NoError(t, store.Init())
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testPost(slug, title string, category blogsync.Category) *blogsync.Post {
	content, _ := blogsync.ParseMarkdown("Body of " + title)
	return &blogsync.Post{
		ID:        1,
		Slug:      slug,
		Title:     title,
		Category:  category,
		Content:   content,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestBBoltStore_DraftSlot(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.LoadDraft(ctx)
	require.ErrorIs(t, err, blogsync.ErrDraftNotFound)

	d := &blogsync.Draft{
		Title:       "Hello",
		Description: "A greeting",
		Category:    blogsync.CategoryTech,
		Content:     "Some body",
		CardType:    blogsync.CardTopRight,
	}
	require.NoError(t, store.SaveDraft(ctx, d))

	loaded, err := store.LoadDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, d.Title, loaded.Title)
	assert.Equal(t, d.CardType, loaded.CardType)

	require.NoError(t, store.DeleteDraft(ctx))
	require.NoError(t, store.DeleteDraft(ctx))
	_, err = store.LoadDraft(ctx)
	require.ErrorIs(t, err, blogsync.ErrDraftNotFound)
}

func TestBBoltStore_CredentialSlot(t *testing.T) {
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

func TestBBoltStore_ArchiveRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.ArchivedPost(ctx, "missing")
	require.ErrorIs(t, err, blogsync.ErrPostNotFound)

	p := testPost("go-intro", "Intro to Go", blogsync.CategoryTech)
	require.NoError(t, store.ArchivePost(ctx, p))

	loaded, err := store.ArchivedPost(ctx, "go-intro")
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", loaded.Title)
	assert.Equal(t, blogsync.CategoryTech, loaded.Category)

	// Archiving the same slug again replaces the copy.
	p.Title = "Intro to Go, Revised"
	require.NoError(t, store.ArchivePost(ctx, p))
	loaded, err = store.ArchivedPost(ctx, "go-intro")
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go, Revised", loaded.Title)
}

func TestBBoltStore_SearchArchive(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.ArchivePost(ctx, testPost("go-intro", "Intro to Go", blogsync.CategoryTech)))
	require.NoError(t, store.ArchivePost(ctx, testPost("sourdough", "Sourdough Basics", blogsync.CategoryFood)))
	require.NoError(t, store.ArchivePost(ctx, testPost("go-generics", "Generics in Go", blogsync.CategoryTech)))

	posts, err := store.SearchArchive(ctx, blogsync.ArchiveFilter{Search: "sourdough"})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "sourdough", posts[0].Slug)

	posts, err = store.SearchArchive(ctx, blogsync.ArchiveFilter{Category: blogsync.CategoryTech})
	require.NoError(t, err)
	require.Len(t, posts, 2)

	posts, err = store.SearchArchive(ctx, blogsync.ArchiveFilter{Search: "go", Category: blogsync.CategoryFood})
	require.NoError(t, err)
	assert.Empty(t, posts)

	posts, err = store.SearchArchive(ctx, blogsync.ArchiveFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestBBoltStore_ClearArchive(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.ArchivePost(ctx, testPost("go-intro", "Intro to Go", blogsync.CategoryTech)))
	require.NoError(t, store.ClearArchive(ctx))

	_, err := store.ArchivedPost(ctx, "go-intro")
	require.ErrorIs(t, err, blogsync.ErrPostNotFound)

	posts, err := store.SearchArchive(ctx, blogsync.ArchiveFilter{})
	require.NoError(t, err)
	assert.Empty(t, posts)

	// The store stays usable after a clear.
	require.NoError(t, store.ArchivePost(ctx, testPost("fresh", "Fresh Start", blogsync.CategoryArt)))
	posts, err = store.SearchArchive(ctx, blogsync.ArchiveFilter{})
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestBBoltStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := bboltstore.New(dir, nil)
	require.NoError(t, store.Init())
	require.NoError(t, store.ArchivePost(ctx, testPost("go-intro", "Intro to Go", blogsync.CategoryTech)))
	require.NoError(t, store.Close())

	reopened := bboltstore.New(dir, nil)
	require.NoError(t, reopened.Init())
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.ArchivedPost(ctx, "go-intro")
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", loaded.Title)
}

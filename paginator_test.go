package blogsync_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogsync"
)

func feedOf(n int) []*blogsync.Post {
	posts := make([]*blogsync.Post, n)
	for i := range posts {
		posts[i] = &blogsync.Post{ID: int64(i + 1), Slug: fmt.Sprintf("post-%d", i+1)}
	}
	return posts
}

func TestNewPaginator(t *testing.T) {
	pager := blogsync.NewPaginator(feedOf(25), 2, 10)

	assert.Equal(t, 3, pager.TotalPages)
	assert.Equal(t, 2, pager.CurrentPage)
	assert.Equal(t, 3, pager.NextPage)
	assert.Equal(t, 1, pager.PrevPage)
	assert.True(t, pager.HasNext)
	assert.True(t, pager.HasPrev)
	assert.True(t, pager.HasPosts)
	assert.Equal(t, 25, pager.TotalPosts)
	require.Len(t, pager.Posts, 10)
	assert.Equal(t, "post-11", pager.Posts[0].Slug)
	assert.Equal(t, "post-20", pager.Posts[9].Slug)
}

func TestNewPaginator_LastPartialPage(t *testing.T) {
	pager := blogsync.NewPaginator(feedOf(25), 3, 10)

	assert.False(t, pager.HasNext)
	assert.Equal(t, 3, pager.NextPage)
	require.Len(t, pager.Posts, 5)
	assert.Equal(t, "post-25", pager.Posts[4].Slug)
}

func TestNewPaginator_ClampsOutOfRange(t *testing.T) {
	pager := blogsync.NewPaginator(feedOf(5), 99, 10)
	assert.Equal(t, 1, pager.CurrentPage)
	assert.Len(t, pager.Posts, 5)

	pager = blogsync.NewPaginator(feedOf(5), -1, 10)
	assert.Equal(t, 1, pager.CurrentPage)

	pager = blogsync.NewPaginator(feedOf(5), 1, 0)
	assert.Equal(t, blogsync.DefaultPageSize, pager.PageSize)
}

func TestNewPaginator_Empty(t *testing.T) {
	pager := blogsync.NewPaginator(nil, 1, 10)
	assert.Equal(t, 1, pager.TotalPages)
	assert.False(t, pager.HasPosts)
	assert.False(t, pager.HasNext)
	assert.False(t, pager.HasPrev)
	assert.Empty(t, pager.Posts)
}

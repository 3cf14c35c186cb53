package blogsync

import (
	"context"
	"log/slog"
)

// Data-access queries. Each declares its query key, its fetch function, and
// the caching policy; concurrent calls for the same key coalesce into one
// network request. The policy matches the web client's defaults: a 60s
// freshness window, no automatic retry, no refetch on focus.

func (c *Client) queryOptions() QueryOptions {
	return QueryOptions{StaleTime: c.cfg.StaleTime.Duration}
}

// Me returns the authenticated viewer, from cache when fresh.
func (c *Client) Me(ctx context.Context) (*User, error) {
	v, err := c.cache.Fetch(ctx, KeyMe(), func(ctx context.Context) (any, error) {
		return c.remote.Me(ctx)
	}, c.queryOptions())
	if err != nil {
		return nil, err
	}
	return v.(*User), nil
}

// PublicPosts returns the public feed, from cache when fresh. Fetched posts
// are archived to the local store for offline reading and search.
func (c *Client) PublicPosts(ctx context.Context) ([]*Post, error) {
	v, err := c.cache.Fetch(ctx, KeyPublicPosts(), func(ctx context.Context) (any, error) {
		posts, err := c.remote.PublicPosts(ctx)
		if err != nil {
			return nil, err
		}
		c.archive(ctx, posts...)
		return posts, nil
	}, c.queryOptions())
	if err != nil {
		return nil, err
	}
	return v.([]*Post), nil
}

// PostBySlug returns one post, from cache when fresh.
func (c *Client) PostBySlug(ctx context.Context, slug string) (*Post, error) {
	v, err := c.cache.Fetch(ctx, KeyPostBySlug(slug), func(ctx context.Context) (any, error) {
		post, err := c.remote.PostBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		c.archive(ctx, post)
		return post, nil
	}, c.queryOptions())
	if err != nil {
		return nil, err
	}
	return v.(*Post), nil
}

// archive stores fetched posts offline, best effort.
func (c *Client) archive(ctx context.Context, posts ...*Post) {
	for _, p := range posts {
		if err := c.store.ArchivePost(ctx, p); err != nil {
			c.logger.Warn("failed to archive post",
				slog.String("slug", p.Slug),
				slog.String("error", err.Error()))
		}
	}
}

// OfflinePost returns a previously fetched post from the local archive.
func (c *Client) OfflinePost(ctx context.Context, slug string) (*Post, error) {
	return c.store.ArchivedPost(ctx, slug)
}

// SearchOffline searches the local post archive.
func (c *Client) SearchOffline(ctx context.Context, opts ArchiveFilter) ([]*Post, error) {
	return c.store.SearchArchive(ctx, opts)
}

// Subscribe registers onChange against a query key so a view re-renders
// whenever the entry updates or is invalidated. The returned function
// unsubscribes.
func (c *Client) Subscribe(key QueryKey, onChange func()) func() {
	return c.cache.Subscribe(key, onChange)
}

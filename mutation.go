package blogsync

import (
	"context"
	"fmt"
)

// Mutation controller. Every write goes through the Remote client; reads
// self-heal afterwards through invalidation. Errors are always returned to
// the caller rather than logged and swallowed.

// Login validates the credentials, exchanges them for a bearer token, stores
// the session credential, and invalidates the viewer query.
func (c *Client) Login(ctx context.Context, email, password string) error {
	if fe := ValidateLogin(email, password); len(fe) > 0 {
		return fe
	}
	token, err := c.remote.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}
	if err := c.session.SetToken(ctx, token); err != nil {
		return err
	}
	c.cache.Invalidate(KeyMe())
	return nil
}

// Register validates the fields and creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	if fe := ValidateRegister(name, email, password); len(fe) > 0 {
		return fe
	}
	if err := c.remote.Register(ctx, name, email, password); err != nil {
		return fmt.Errorf("failed to sign up: %w", err)
	}
	return nil
}

// Logout erases the session credential and drops the cache, since every
// viewer-dependent projection (likedByMe and the viewer itself) is void.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.session.Clear(ctx); err != nil {
		return err
	}
	c.cache.Clear()
	return nil
}

// ToggleLike flips the viewer's like on the post with the given slug,
// optimistically: the predicted state is visible before the network call
// resolves, rolled back from the snapshot on failure, and reconciled with
// server truth on settlement either way.
//
// Rapid repeated toggles are safe: each invocation supersedes the previous
// in-flight fetch and recomputes its prediction from the then-current,
// possibly already-optimistic state.
func (c *Client) ToggleLike(ctx context.Context, slug string) error {
	key := KeyPostBySlug(slug)

	current, prior, hasSnap, err := c.applyLikeFlip(key, slug)
	if err != nil {
		return err
	}

	err = c.remote.ToggleLike(ctx, current.ID)
	if err != nil {
		c.rollbackLikeFlip(key, prior, current, hasSnap)
	}

	c.cache.Invalidate(key)
	c.cache.Invalidate(KeyPublicPosts())

	if err != nil {
		return fmt.Errorf("failed to toggle like: %w", err)
	}
	return nil
}

// applyLikeFlip runs the optimistic phase of a like toggle under likeMu, so
// the snapshot each invocation reads already includes any flip an overlapping
// invocation committed. It returns the pre-flip post and the rollback
// snapshot for the detail entry.
func (c *Client) applyLikeFlip(key QueryKey, slug string) (current *Post, prior any, hasSnap bool, err error) {
	c.likeMu.Lock()
	defer c.likeMu.Unlock()

	// A superseded fetch must not overwrite the optimistic value when its
	// response lands.
	c.cache.Cancel(key)
	c.cache.Cancel(KeyPublicPosts())

	// Retain the prior value as the rollback snapshot. The post may live
	// only inside the feed when its detail page was never opened, and an
	// embedder may have parked a foreign value under the detail key.
	if snap, ok := c.cache.Get(key); ok && snap.HasValue {
		if p, isPost := snap.Value.(*Post); isPost {
			current, prior, hasSnap = p, snap.Value, true
		}
	}
	if current == nil {
		current = c.feedPost(slug)
	}
	if current == nil {
		return nil, nil, false, fmt.Errorf("%w: %s", ErrNotCached, slug)
	}

	// Apply the prediction synchronously, to the detail entry and to the
	// post's copy inside the feed.
	next := current.Clone()
	next.ToggleLiked()
	if hasSnap {
		c.cache.Set(key, next)
	}
	c.setFeedPost(next)
	return current, prior, hasSnap, nil
}

// rollbackLikeFlip restores the snapshot after a failed request. Invalidation
// afterwards forces reconciliation with server truth either way.
func (c *Client) rollbackLikeFlip(key QueryKey, prior any, current *Post, hasSnap bool) {
	c.likeMu.Lock()
	defer c.likeMu.Unlock()

	if hasSnap {
		c.cache.Set(key, prior)
	}
	c.setFeedPost(current)
}

// CreatePost publishes a draft. On success the public feed is invalidated;
// clearing the draft is the wizard's concern.
func (c *Client) CreatePost(ctx context.Context, d *Draft) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if !d.CardType.Valid() {
		return ErrNoCardType
	}
	doc, err := d.Document()
	if err != nil {
		return fmt.Errorf("failed to parse draft content: %w", err)
	}

	req := CreatePostRequest{
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Content:     doc,
		CardType:    d.CardType,
		Published:   true,
	}
	if err := c.remote.CreatePost(ctx, req); err != nil {
		return fmt.Errorf("failed to publish post: %w", err)
	}
	c.cache.Invalidate(KeyPublicPosts())
	return nil
}

// feedPost finds the post with the given slug inside the cached public feed.
func (c *Client) feedPost(slug string) *Post {
	entry, ok := c.cache.Get(KeyPublicPosts())
	if !ok || !entry.HasValue {
		return nil
	}
	posts, ok := entry.Value.([]*Post)
	if !ok {
		return nil
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p
		}
	}
	return nil
}

// setFeedPost replaces the post's copy inside the cached public feed, if the
// feed is cached and contains it.
func (c *Client) setFeedPost(p *Post) {
	entry, ok := c.cache.Get(KeyPublicPosts())
	if !ok || !entry.HasValue {
		return
	}
	posts, ok := entry.Value.([]*Post)
	if !ok {
		return
	}
	out := make([]*Post, len(posts))
	changed := false
	for i, cur := range posts {
		if cur.Slug == p.Slug {
			out[i] = p
			changed = true
		} else {
			out[i] = cur
		}
	}
	if changed {
		c.cache.Set(KeyPublicPosts(), out)
	}
}

// Package blogsync is the client-side data-synchronization core for the
// blog platform: a query cache over the remote HTTP API, an optimistic
// mutation controller, a realtime invalidation channel, and durable local
// storage for drafts, the session credential, and an offline post archive.
package blogsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Client is the main entry point. It owns the query cache, the remote HTTP
// client, the session, and the realtime notifier, all bound to one local
// store. Construct one per process; tests may hold several isolated
// instances.
type Client struct {
	cfg      Config
	remote   *Remote
	cache    *QueryCache
	session  *Session
	store    LocalStore
	notifier *Notifier
	logger   *slog.Logger

	// likeMu serializes the optimistic phase of like toggles so overlapping
	// invocations each read the state the previous flip left behind.
	likeMu sync.Mutex
}

// New creates a Client over an initialized local store. The caller keeps
// ownership of the store and closes it after the client.
func New(ctx context.Context, cfg Config, store LocalStore, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	session, err := NewSession(ctx, store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	cache := NewQueryCache(cfg.StaleTime.Duration, logger)
	c := &Client{
		cfg:     cfg,
		remote:  NewRemote(cfg.APIBaseURL, cfg.RequestTimeout.Duration, session, logger),
		cache:   cache,
		session: session,
		store:   store,
		logger:  logger,
	}
	c.notifier = NewNotifier(cfg.WebsocketURL(), cache, logger)
	return c, nil
}

// Cache exposes the query cache to embedders that subscribe views directly.
func (c *Client) Cache() *QueryCache { return c.cache }

// Session exposes the session credential manager.
func (c *Client) Session() *Session { return c.session }

// Notifier exposes the realtime notifier.
func (c *Client) Notifier() *Notifier { return c.notifier }

// Store exposes the durable local store the client was built over.
func (c *Client) Store() LocalStore { return c.store }

// Watch connects the realtime notifier so new-post events invalidate the
// public feed while the client runs.
func (c *Client) Watch(ctx context.Context) error {
	return c.notifier.Connect(ctx)
}

// Close disconnects the notifier. The local store stays open; its owner
// closes it.
func (c *Client) Close() error {
	return c.notifier.Close()
}

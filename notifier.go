package blogsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

// NotifierState is the connection state of the realtime notifier.
type NotifierState string

const (
	NotifierDisconnected NotifierState = "disconnected"
	NotifierConnected    NotifierState = "connected"
)

// EventNewPost is the only event the notifier acts on: someone published a
// post, so the public feed is stale. The payload carries no contract beyond
// the trigger.
const EventNewPost = "new-post"

// DefaultDebounce coalesces a burst of new-post events into a single feed
// refetch.
const DefaultDebounce = 250 * time.Millisecond

// Notifier maintains the push-notification connection. While connected it
// listens for new-post events and invalidates the public feed query, which
// triggers subscribed views to refetch. Reconnection uses exponential
// backoff with jitter.
type Notifier struct {
	url      string
	cache    *QueryCache
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	state   NotifierState
	conn    *websocket.Conn
	cancel  context.CancelFunc
	pending *time.Timer
	done    chan struct{}
}

// NewNotifier creates a disconnected notifier for the given websocket URL.
func NewNotifier(url string, cache *QueryCache, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		url:      url,
		cache:    cache,
		logger:   logger,
		debounce: DefaultDebounce,
		state:    NotifierDisconnected,
	}
}

// State returns the current connection state.
func (n *Notifier) State() NotifierState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Connect dials the notification endpoint and starts the listen loop. The
// given context bounds the initial dial only; the loop runs until Close.
func (n *Notifier) Connect(ctx context.Context) error {
	n.mu.Lock()
	if n.cancel != nil {
		n.mu.Unlock()
		return ErrAlreadyConnected
	}
	runCtx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})
	done := n.done
	n.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, n.url, nil)
	if err != nil {
		cancel()
		close(done)
		n.mu.Lock()
		n.cancel = nil
		n.done = nil
		n.mu.Unlock()
		return fmt.Errorf("failed to connect notifier: %w", err)
	}

	n.setConn(conn)
	go n.run(runCtx, conn, done)
	return nil
}

// Close disconnects unconditionally and stops any pending refetch. Closing
// a notifier that never connected is a no-op.
func (n *Notifier) Close() error {
	n.mu.Lock()
	cancel := n.cancel
	conn := n.conn
	pending := n.pending
	done := n.done
	n.cancel = nil
	n.conn = nil
	n.pending = nil
	n.done = nil
	n.state = NotifierDisconnected
	n.mu.Unlock()

	if pending != nil {
		pending.Stop()
	}
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}
	return nil
}

func (n *Notifier) run(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second

	for {
		if conn != nil {
			bo.Reset()
			n.listen(ctx, conn)
			n.setDisconnected()
		}
		if ctx.Err() != nil {
			return
		}

		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			return
		}

		next, _, err := websocket.DefaultDialer.DialContext(ctx, n.url, nil)
		if err != nil {
			if ctx.Err() == nil {
				n.logger.Warn("notifier reconnect failed", slog.String("error", err.Error()))
			}
			conn = nil
			continue
		}
		n.setConn(next)
		conn = next
	}
}

// listen reads events until the connection drops.
func (n *Notifier) listen(ctx context.Context, conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				n.logger.Debug("notifier connection lost", slog.String("error", err.Error()))
			}
			return
		}

		var msg struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Event == EventNewPost {
			n.scheduleRefetch()
		}
	}
}

// scheduleRefetch invalidates the public feed after the debounce window.
// Events arriving while a refetch is pending fold into it, so a burst costs
// one refetch.
func (n *Notifier) scheduleRefetch() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.pending != nil {
		return
	}
	n.pending = time.AfterFunc(n.debounce, func() {
		n.mu.Lock()
		n.pending = nil
		n.mu.Unlock()
		n.cache.Invalidate(KeyPublicPosts())
	})
}

func (n *Notifier) setConn(conn *websocket.Conn) {
	n.mu.Lock()
	n.conn = conn
	n.state = NotifierConnected
	n.mu.Unlock()
}

func (n *Notifier) setDisconnected() {
	n.mu.Lock()
	if n.conn != nil {
		n.conn = nil
	}
	n.state = NotifierDisconnected
	n.mu.Unlock()
}

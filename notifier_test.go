package blogsync_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogsync"
)

// eventServer is a websocket endpoint that pushes event payloads to every
// connected client.
type eventServer struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns []*websocket.Conn
}

func (es *eventServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := es.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	es.mu.Lock()
	es.conns = append(es.conns, conn)
	es.mu.Unlock()
}

func (es *eventServer) broadcast(t *testing.T, payload string) {
	t.Helper()

	// The server side registers the connection just after the handshake; wait
	// for it so an immediate broadcast is not lost.
	require.Eventually(t, func() bool {
		es.mu.Lock()
		defer es.mu.Unlock()
		return len(es.conns) > 0
	}, time.Second, 5*time.Millisecond)

	es.mu.Lock()
	defer es.mu.Unlock()
	for _, conn := range es.conns {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestNotifier_NewPostInvalidatesFeed(t *testing.T) {
	es := &eventServer{}
	srv := httptest.NewServer(es)
	defer srv.Close()

	qc := blogsync.NewQueryCache(time.Minute, nil)
	qc.Set(blogsync.KeyPublicPosts(), "feed")

	var notified int32
	defer qc.Subscribe(blogsync.KeyPublicPosts(), func() {
		atomic.AddInt32(&notified, 1)
	})()

	n := blogsync.NewNotifier(wsURL(srv), qc, nil)
	require.NoError(t, n.Connect(context.Background()))
	defer func() { _ = n.Close() }()
	assert.Equal(t, blogsync.NotifierConnected, n.State())

	es.broadcast(t, `{"event":"new-post"}`)

	assert.Eventually(t, func() bool {
		entry, ok := qc.Get(blogsync.KeyPublicPosts())
		return ok && entry.Status == blogsync.StatusStale
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&notified))
}

func TestNotifier_BurstCoalescesToOneRefetch(t *testing.T) {
	es := &eventServer{}
	srv := httptest.NewServer(es)
	defer srv.Close()

	qc := blogsync.NewQueryCache(time.Minute, nil)

	var fetches int32
	_, err := qc.Fetch(context.Background(), blogsync.KeyPublicPosts(), func(ctx context.Context) (any, error) {
		return int(atomic.AddInt32(&fetches, 1)), nil
	}, blogsync.QueryOptions{})
	require.NoError(t, err)
	defer qc.Subscribe(blogsync.KeyPublicPosts(), func() {})()

	n := blogsync.NewNotifier(wsURL(srv), qc, nil)
	require.NoError(t, n.Connect(context.Background()))
	defer func() { _ = n.Close() }()

	for i := 0; i < 5; i++ {
		es.broadcast(t, `{"event":"new-post"}`)
	}

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fetches) == 2
	}, 2*time.Second, 20*time.Millisecond, "a burst folds into one refetch")

	// Nothing else arrives after the debounce window.
	time.Sleep(2 * blogsync.DefaultDebounce)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}

func TestNotifier_IgnoresOtherEvents(t *testing.T) {
	es := &eventServer{}
	srv := httptest.NewServer(es)
	defer srv.Close()

	qc := blogsync.NewQueryCache(time.Minute, nil)
	qc.Set(blogsync.KeyPublicPosts(), "feed")

	n := blogsync.NewNotifier(wsURL(srv), qc, nil)
	require.NoError(t, n.Connect(context.Background()))
	defer func() { _ = n.Close() }()

	es.broadcast(t, `{"event":"comment-added"}`)
	es.broadcast(t, `not even json`)

	time.Sleep(2 * blogsync.DefaultDebounce)
	entry, ok := qc.Get(blogsync.KeyPublicPosts())
	require.True(t, ok)
	assert.Equal(t, blogsync.StatusFresh, entry.Status)
}

func TestNotifier_ConnectTwiceFails(t *testing.T) {
	es := &eventServer{}
	srv := httptest.NewServer(es)
	defer srv.Close()

	n := blogsync.NewNotifier(wsURL(srv), blogsync.NewQueryCache(time.Minute, nil), nil)
	require.NoError(t, n.Connect(context.Background()))
	defer func() { _ = n.Close() }()

	err := n.Connect(context.Background())
	require.ErrorIs(t, err, blogsync.ErrAlreadyConnected)
}

func TestNotifier_CloseIsIdempotent(t *testing.T) {
	n := blogsync.NewNotifier("ws://localhost:1/nowhere", blogsync.NewQueryCache(time.Minute, nil), nil)
	require.NoError(t, n.Close(), "closing a never-connected notifier is a no-op")

	err := n.Connect(context.Background())
	require.Error(t, err, "nothing listens on the dial target")
	require.NoError(t, n.Close())
	assert.Equal(t, blogsync.NotifierDisconnected, n.State())
}

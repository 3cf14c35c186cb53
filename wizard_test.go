package blogsync_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogsync"
)

func validDraft() blogsync.Draft {
	return blogsync.Draft{
		Title:       "Hello World",
		Description: "A greeting post",
		Category:    blogsync.CategoryTech,
		Content:     "Some **markdown** body.",
	}
}

func newWizard(t *testing.T, srvURL string) (*blogsync.Wizard, *blogsync.Client) {
	t.Helper()
	client := newTestClient(t, srvURL)
	w, err := blogsync.NewWizard(context.Background(), client)
	require.NoError(t, err)
	return w, client
}

func TestWizard_StartsAtCompose(t *testing.T) {
	w, _ := newWizard(t, "http://unreachable.invalid")
	assert.Equal(t, blogsync.StepCompose, w.Step())
}

func TestWizard_NextRequiresValidDraft(t *testing.T) {
	w, _ := newWizard(t, "http://unreachable.invalid")

	err := w.Next()
	require.ErrorIs(t, err, blogsync.ErrInvalidDraft)
	assert.Equal(t, blogsync.StepCompose, w.Step())

	require.NoError(t, w.SetDraft(context.Background(), validDraft()))
	require.NoError(t, w.Next())
	assert.Equal(t, blogsync.StepSelectType, w.Step())
}

func TestWizard_SaveNeverRequiresValidity(t *testing.T) {
	w, client := newWizard(t, "http://unreachable.invalid")

	partial := blogsync.Draft{Title: "Only a title"}
	require.NoError(t, w.SetDraft(context.Background(), partial))

	saved, err := client.Store().LoadDraft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Only a title", saved.Title)
	assert.False(t, saved.Updated.IsZero())
}

func TestWizard_ResumesSavedDraft(t *testing.T) {
	store := blogsync.NewMemoryLocalStore()
	cfg := blogsync.Config{APIBaseURL: "http://unreachable.invalid"}
	client, err := blogsync.New(context.Background(), cfg, store, nil)
	require.NoError(t, err)

	w, err := blogsync.NewWizard(context.Background(), client)
	require.NoError(t, err)
	require.NoError(t, w.SetDraft(context.Background(), validDraft()))

	// A second wizard over the same store picks the draft back up.
	resumed, err := blogsync.NewWizard(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", resumed.Draft().Title)
	assert.Equal(t, blogsync.StepCompose, resumed.Step())
}

func TestWizard_SelectCardTypeOnlyAtSelectStep(t *testing.T) {
	w, _ := newWizard(t, "http://unreachable.invalid")

	err := w.SelectCardType(context.Background(), blogsync.CardTopLeft)
	require.ErrorIs(t, err, blogsync.ErrWrongStep)

	require.NoError(t, w.SetDraft(context.Background(), validDraft()))
	require.NoError(t, w.Next())

	err = w.SelectCardType(context.Background(), blogsync.CardType("SIDEWAYS"))
	require.Error(t, err)

	require.NoError(t, w.SelectCardType(context.Background(), blogsync.CardTopLeft))
	assert.Equal(t, blogsync.CardTopLeft, w.Draft().CardType)
}

func TestWizard_PublishRequiresCardType(t *testing.T) {
	w, _ := newWizard(t, "http://unreachable.invalid")

	require.NoError(t, w.SetDraft(context.Background(), validDraft()))
	require.NoError(t, w.Next())

	err := w.Publish(context.Background())
	require.ErrorIs(t, err, blogsync.ErrNoCardType)
	assert.Equal(t, blogsync.StepSelectType, w.Step())
}

func TestWizard_PublishFailureKeepsDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"server down"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	w, client := newWizard(t, srv.URL)
	require.NoError(t, w.SetDraft(context.Background(), validDraft()))
	require.NoError(t, w.Next())
	require.NoError(t, w.SelectCardType(context.Background(), blogsync.CardBottomRight))

	err := w.Publish(context.Background())
	require.Error(t, err)

	// The wizard holds its place and the draft survives, so a retry is possible.
	assert.Equal(t, blogsync.StepSelectType, w.Step())
	saved, err := client.Store().LoadDraft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello World", saved.Title)
}

func TestWizard_PublishSuccessClearsDraftAndResets(t *testing.T) {
	var published int32
	var gotReq struct {
		Title     string            `json:"title"`
		Category  blogsync.Category `json:"category"`
		CardType  blogsync.CardType `json:"postType"`
		Published bool              `json:"published"`
		Content   json.RawMessage   `json:"content"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&published, 1)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	w, client := newWizard(t, srv.URL)
	require.NoError(t, w.SetDraft(context.Background(), validDraft()))
	require.NoError(t, w.Next())
	require.NoError(t, w.SelectCardType(context.Background(), blogsync.CardBottomRight))

	require.NoError(t, w.Publish(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&published))
	assert.Equal(t, "Hello World", gotReq.Title)
	assert.Equal(t, blogsync.CategoryTech, gotReq.Category)
	assert.Equal(t, blogsync.CardBottomRight, gotReq.CardType)
	assert.True(t, gotReq.Published)
	assert.NotEmpty(t, gotReq.Content)

	assert.Equal(t, blogsync.StepCompose, w.Step())
	assert.Empty(t, w.Draft().Title)
	_, err := client.Store().LoadDraft(context.Background())
	require.ErrorIs(t, err, blogsync.ErrDraftNotFound)
}

func TestWizard_BackStopsAtCompose(t *testing.T) {
	w, _ := newWizard(t, "http://unreachable.invalid")

	w.Back()
	assert.Equal(t, blogsync.StepCompose, w.Step())

	require.NoError(t, w.SetDraft(context.Background(), validDraft()))
	require.NoError(t, w.Next())
	w.Back()
	assert.Equal(t, blogsync.StepCompose, w.Step())
}

func TestWizard_ResetDiscardsDraft(t *testing.T) {
	w, client := newWizard(t, "http://unreachable.invalid")

	require.NoError(t, w.SetDraft(context.Background(), validDraft()))
	require.NoError(t, w.Next())
	require.NoError(t, w.Reset(context.Background()))

	assert.Equal(t, blogsync.StepCompose, w.Step())
	assert.Empty(t, w.Draft().Title)
	_, err := client.Store().LoadDraft(context.Background())
	require.ErrorIs(t, err, blogsync.ErrDraftNotFound)
}

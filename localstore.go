package blogsync

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// LocalStore is durable client-side storage for state that outlives the
// process: the in-progress draft, the session credential, and an archive of
// previously fetched posts for offline reading and search.
//
// Draft semantics are last-write-wins; there is no conflict detection
// between concurrent writers.
type LocalStore interface {
	// Init prepares the store, such as opening files or creating buckets.
	Init() error
	// Close closes the store.
	Close() error

	// SaveDraft overwrites the single draft slot.
	SaveDraft(ctx context.Context, d *Draft) error
	// LoadDraft returns the saved draft, or ErrDraftNotFound.
	LoadDraft(ctx context.Context) (*Draft, error)
	// DeleteDraft clears the draft slot. Deleting an absent draft is not an error.
	DeleteDraft(ctx context.Context) error

	// SaveCredential overwrites the session credential.
	SaveCredential(ctx context.Context, c *Credential) error
	// LoadCredential returns the saved credential, or ErrNoCredential.
	LoadCredential(ctx context.Context) (*Credential, error)
	// DeleteCredential clears the credential. Absence is not an error.
	DeleteCredential(ctx context.Context) error

	// ArchivePost stores a fetched post for offline use, replacing any
	// archived copy with the same slug.
	ArchivePost(ctx context.Context, p *Post) error
	// ArchivedPost returns an archived post by slug, or ErrPostNotFound.
	ArchivedPost(ctx context.Context, slug string) (*Post, error)
	// SearchArchive searches archived posts.
	SearchArchive(ctx context.Context, opts ArchiveFilter) ([]*Post, error)
	// ClearArchive drops every archived post.
	ClearArchive(ctx context.Context) error
}

// ArchiveFilter narrows an offline archive search.
type ArchiveFilter struct {
	Search   string   // full-text query over title, description, and content
	Category Category // restrict to one category; empty means any
	Limit    int      // maximum results; <= 0 selects DefaultArchiveLimit
}

// DefaultArchiveLimit caps archive searches with no explicit limit.
const DefaultArchiveLimit = 20

// MemoryLocalStore implements LocalStore with in-memory storage. It backs
// tests and ephemeral runs where nothing should touch the disk.
type MemoryLocalStore struct {
	mu    sync.RWMutex
	draft *Draft
	cred  *Credential
	posts map[string]*Post
}

// NewMemoryLocalStore creates an empty MemoryLocalStore.
func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{posts: make(map[string]*Post)}
}

// Init initializes the store.
func (m *MemoryLocalStore) Init() error { return nil }

// Close closes the store.
func (m *MemoryLocalStore) Close() error { return nil }

// SaveDraft overwrites the draft slot.
func (m *MemoryLocalStore) SaveDraft(_ context.Context, d *Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *d
	m.draft = &cp
	return nil
}

// LoadDraft returns the saved draft.
func (m *MemoryLocalStore) LoadDraft(_ context.Context) (*Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.draft == nil {
		return nil, ErrDraftNotFound
	}
	cp := *m.draft
	return &cp, nil
}

// DeleteDraft clears the draft slot.
func (m *MemoryLocalStore) DeleteDraft(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.draft = nil
	return nil
}

// SaveCredential overwrites the session credential.
func (m *MemoryLocalStore) SaveCredential(_ context.Context, c *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.cred = &cp
	return nil
}

// LoadCredential returns the saved credential.
func (m *MemoryLocalStore) LoadCredential(_ context.Context) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cred == nil {
		return nil, ErrNoCredential
	}
	cp := *m.cred
	return &cp, nil
}

// DeleteCredential clears the credential.
func (m *MemoryLocalStore) DeleteCredential(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cred = nil
	return nil
}

// ArchivePost stores a post, replacing any archived copy with the same slug.
func (m *MemoryLocalStore) ArchivePost(_ context.Context, p *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.posts[p.Slug] = p.Clone()
	return nil
}

// ArchivedPost returns an archived post by slug.
func (m *MemoryLocalStore) ArchivedPost(_ context.Context, slug string) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.posts[slug]
	if !ok {
		return nil, ErrPostNotFound
	}
	return p.Clone(), nil
}

// SearchArchive searches archived posts with case-insensitive substring
// matching over title, description, and content text.
func (m *MemoryLocalStore) SearchArchive(_ context.Context, opts ArchiveFilter) ([]*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultArchiveLimit
	}
	needle := strings.ToLower(strings.TrimSpace(opts.Search))

	var matched []*Post
	for _, p := range m.posts {
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		if needle != "" && !postMatchesSearch(p, needle) {
			continue
		}
		matched = append(matched, p.Clone())
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// ClearArchive drops every archived post.
func (m *MemoryLocalStore) ClearArchive(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.posts = make(map[string]*Post)
	return nil
}

func postMatchesSearch(p *Post, needle string) bool {
	if strings.Contains(strings.ToLower(p.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Description), needle) {
		return true
	}
	return strings.Contains(strings.ToLower(p.Content.PlainText()), needle)
}

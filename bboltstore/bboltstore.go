// Package bboltstore implements blogsync.LocalStore over a bbolt key-value
// file plus a bleve full-text index for archive search.
package bboltstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.etcd.io/bbolt"

	"github.com/hypergopher/blogsync"
)

const (
	bboltFile   = "blogsync.db"
	bleveFile   = "blogsync.bleve"
	bucketPosts = "posts"
	bucketState = "state"

	keyDraft      = "draft"
	keyCredential = "credential"
)

// archiveDoc is the shape indexed in bleve. Only searchable fields go in;
// the bolt bucket keeps the full post.
type archiveDoc struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Category    string `json:"category"`
}

// BBoltStore is a durable local store backed by bbolt and bleve.
type BBoltStore struct {
	bleveIndex bleve.Index
	boltIndex  *bbolt.DB
	dataDir    string
	logger     *slog.Logger
	mu         sync.Mutex
}

// New creates a BBoltStore rooted at dataDir. Call Init before use.
func New(dataDir string, logger *slog.Logger) *BBoltStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BBoltStore{
		dataDir: dataDir,
		logger:  logger,
	}
}

// Init opens the bbolt file and the bleve index, creating both on first run.
func (bbs *BBoltStore) Init() error {
	if err := os.MkdirAll(bbs.dataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	boltIndex, err := bbs.initBolt()
	if err != nil {
		return fmt.Errorf("failed to initialize bbolt: %w", err)
	}
	bbs.boltIndex = boltIndex

	bleveIndex, err := bbs.initBleve()
	if err != nil {
		return fmt.Errorf("failed to initialize bleve: %w", err)
	}
	bbs.bleveIndex = bleveIndex

	return nil
}

// Close closes both indexes.
func (bbs *BBoltStore) Close() error {
	if bbs.boltIndex != nil {
		if err := bbs.boltIndex.Close(); err != nil {
			return err
		}
	}

	if bbs.bleveIndex != nil {
		return bbs.bleveIndex.Close()
	}

	return nil
}

// SaveDraft overwrites the single draft slot.
func (bbs *BBoltStore) SaveDraft(_ context.Context, d *blogsync.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to serialize draft: %w", err)
	}
	return bbs.putState(keyDraft, data)
}

// LoadDraft returns the saved draft, or blogsync.ErrDraftNotFound.
func (bbs *BBoltStore) LoadDraft(_ context.Context) (*blogsync.Draft, error) {
	data, err := bbs.getState(keyDraft)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, blogsync.ErrDraftNotFound
	}

	var d blogsync.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to deserialize draft: %w", err)
	}
	return &d, nil
}

// DeleteDraft clears the draft slot.
func (bbs *BBoltStore) DeleteDraft(_ context.Context) error {
	return bbs.deleteState(keyDraft)
}

// SaveCredential overwrites the session credential.
func (bbs *BBoltStore) SaveCredential(_ context.Context, c *blogsync.Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize credential: %w", err)
	}
	return bbs.putState(keyCredential, data)
}

// LoadCredential returns the saved credential, or blogsync.ErrNoCredential.
func (bbs *BBoltStore) LoadCredential(_ context.Context) (*blogsync.Credential, error) {
	data, err := bbs.getState(keyCredential)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, blogsync.ErrNoCredential
	}

	var c blogsync.Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to deserialize credential: %w", err)
	}
	return &c, nil
}

// DeleteCredential clears the credential.
func (bbs *BBoltStore) DeleteCredential(_ context.Context) error {
	return bbs.deleteState(keyCredential)
}

// ArchivePost stores a post and indexes it for search, replacing any archived
// copy with the same slug.
func (bbs *BBoltStore) ArchivePost(_ context.Context, p *blogsync.Post) error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	postBytes, err := p.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize post: %w", err)
	}

	err = bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketPosts))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(p.Slug), postBytes)
	})
	if err != nil {
		return fmt.Errorf("failed to put post in bolt: %w", err)
	}

	doc := archiveDoc{
		Slug:        p.Slug,
		Title:       p.Title,
		Description: p.Description,
		Content:     p.Content.PlainText(),
		Category:    string(p.Category),
	}
	if err := bbs.bleveIndex.Index(p.Slug, doc); err != nil {
		return fmt.Errorf("failed to index post in bleve: %w", err)
	}

	return nil
}

// ArchivedPost returns an archived post by slug.
func (bbs *BBoltStore) ArchivedPost(_ context.Context, slug string) (*blogsync.Post, error) {
	var post *blogsync.Post
	err := bbs.boltIndex.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketPosts))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		postBytes := b.Get([]byte(slug))
		if postBytes == nil {
			return blogsync.ErrPostNotFound
		}

		var err error
		post, err = blogsync.DeserializePost(postBytes)
		if err != nil {
			return fmt.Errorf("error deserializing post: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, blogsync.ErrPostNotFound) {
			return nil, fmt.Errorf("%w: %s", blogsync.ErrPostNotFound, slug)
		}
		return nil, fmt.Errorf("error getting post %s: %w", slug, err)
	}
	return post, nil
}

// SearchArchive searches archived posts through the bleve index.
func (bbs *BBoltStore) SearchArchive(ctx context.Context, opts blogsync.ArchiveFilter) ([]*blogsync.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = blogsync.DefaultArchiveLimit
	}

	request := bleve.NewSearchRequestOptions(bbs.searchQuery(opts), limit, 0, false)
	request.SortBy([]string{"-_score", "slug"})

	result, err := bbs.bleveIndex.Search(request)
	if err != nil {
		return nil, fmt.Errorf("error searching for posts: %w", err)
	}

	posts := make([]*blogsync.Post, 0, len(result.Hits))
	for _, hit := range result.Hits {
		post, err := bbs.ArchivedPost(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, blogsync.ErrPostNotFound) {
				// The bolt copy was cleared after indexing; skip the hit.
				continue
			}
			return nil, err
		}
		posts = append(posts, post)
	}

	return posts, nil
}

// ClearArchive drops every archived post from both indexes.
func (bbs *BBoltStore) ClearArchive(_ context.Context) error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketPosts)); err != nil {
			return fmt.Errorf("failed to delete posts bucket: %w", err)
		}
		_, err := tx.CreateBucket([]byte(bucketPosts))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear bolt: %w", err)
	}

	// Rebuild the bleve index from scratch rather than deleting per document.
	if err := bbs.bleveIndex.Close(); err != nil {
		return fmt.Errorf("failed to close bleve index: %w", err)
	}
	if err := os.RemoveAll(filepath.Join(bbs.dataDir, bleveFile)); err != nil {
		return fmt.Errorf("failed to remove bleve index: %w", err)
	}
	index, err := bbs.initBleve()
	if err != nil {
		return fmt.Errorf("failed to reinitialize bleve: %w", err)
	}
	bbs.bleveIndex = index

	return nil
}

func (bbs *BBoltStore) putState(key string, data []byte) error {
	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketState))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to put %s in bolt: %w", key, err)
	}
	return nil
}

func (bbs *BBoltStore) getState(key string) ([]byte, error) {
	var data []byte
	err := bbs.boltIndex.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketState))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s from bolt: %w", key, err)
	}
	return data, nil
}

func (bbs *BBoltStore) deleteState(key string) error {
	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketState))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from bolt: %w", key, err)
	}
	return nil
}

func (bbs *BBoltStore) initBolt() (*bbolt.DB, error) {
	boltPath := filepath.Join(bbs.dataDir, bboltFile)
	boltIndex, err := bbolt.Open(boltPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt index: %w", err)
	}

	err = boltIndex.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketPosts)); err != nil {
			return fmt.Errorf("failed to create posts bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketState)); err != nil {
			return fmt.Errorf("failed to create state bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return boltIndex, nil
}

func (bbs *BBoltStore) initBleve() (bleve.Index, error) {
	blevePath := filepath.Join(bbs.dataDir, bleveFile)
	index, err := bleve.Open(blevePath)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		bbs.logger.Debug("Creating new bleve index")
		indexMapping := defineBleveMapping()
		index, err = bleve.NewUsing(blevePath, indexMapping, bleve.Config.DefaultIndexType, bleve.Config.DefaultKVStore, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create bleve index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}

	return index, nil
}

func defineBleveMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	docMapping.AddFieldMappingsAt("slug", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("title", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("description", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("content", bleve.NewTextFieldMapping())

	categoryMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("category", categoryMapping)

	indexMapping.AddDocumentMapping(indexMapping.DefaultType, docMapping)
	return indexMapping
}

func (bbs *BBoltStore) searchQuery(opts blogsync.ArchiveFilter) query.Query {
	queries := make([]query.Query, 0, 2)

	if opts.Search != "" {
		search := bleve.NewQueryStringQuery(opts.Search)
		queries = append(queries, search)
	}

	if opts.Category != "" {
		categoryQuery := bleve.NewTermQuery(string(opts.Category))
		categoryQuery.SetField("category")
		queries = append(queries, categoryQuery)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}

	return bleve.NewConjunctionQuery(queries...)
}

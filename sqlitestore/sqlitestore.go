// Package sqlitestore implements blogsync.LocalStore over a single SQLite
// file. It suits environments where one portable database file beats a data
// directory with separate index files.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/hypergopher/blogsync"
)

// Open opens (or creates) the SQLite database at dbPath.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

const (
	keyDraft      = "draft"
	keyCredential = "credential"
)

// SQLiteStore is a durable local store backed by database/sql over SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New wraps an open database. The caller keeps ownership of db unless it
// lets Close release it.
func New(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Init creates the tables and indexes if they do not exist.
func (s *SQLiteStore) Init() error {
	query := `
		-- Single-row slots for the draft and the session credential
		CREATE TABLE IF NOT EXISTS state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		-- Offline post archive; data holds the serialized post, the text
		-- columns exist for search
		CREATE TABLE IF NOT EXISTS archive (
			slug TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			content_text TEXT NOT NULL,
			category TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS archive_category_idx ON archive(category);
		CREATE INDEX IF NOT EXISTS archive_created_at_idx ON archive(created_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveDraft overwrites the single draft slot.
func (s *SQLiteStore) SaveDraft(ctx context.Context, d *blogsync.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to serialize draft: %w", err)
	}
	return s.putState(ctx, keyDraft, data)
}

// LoadDraft returns the saved draft, or blogsync.ErrDraftNotFound.
func (s *SQLiteStore) LoadDraft(ctx context.Context) (*blogsync.Draft, error) {
	data, err := s.getState(ctx, keyDraft)
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
func (s *SQLiteStore) DeleteDraft(ctx context.Context) error {
	return s.deleteState(ctx, keyDraft)
}

// SaveCredential overwrites the session credential.
func (s *SQLiteStore) SaveCredential(ctx context.Context, c *blogsync.Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize credential: %w", err)
	}
	return s.putState(ctx, keyCredential, data)
}

// LoadCredential returns the saved credential, or blogsync.ErrNoCredential.
func (s *SQLiteStore) LoadCredential(ctx context.Context) (*blogsync.Credential, error) {
	data, err := s.getState(ctx, keyCredential)
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
func (s *SQLiteStore) DeleteCredential(ctx context.Context) error {
	return s.deleteState(ctx, keyCredential)
}

// ArchivePost stores a post, replacing any archived copy with the same slug.
func (s *SQLiteStore) ArchivePost(ctx context.Context, p *blogsync.Post) error {
	data, err := p.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize post: %w", err)
	}

	query := `
		INSERT INTO archive (slug, data, title, description, content_text, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			data = excluded.data,
			title = excluded.title,
			description = excluded.description,
			content_text = excluded.content_text,
			category = excluded.category,
			created_at = excluded.created_at
	`
	if _, err := s.db.ExecContext(ctx, query,
		p.Slug, data, p.Title, p.Description, p.Content.PlainText(),
		string(p.Category), p.CreatedAt); err != nil {
		return fmt.Errorf("failed to archive post: %w", err)
	}
	return nil
}

// ArchivedPost returns an archived post by slug.
func (s *SQLiteStore) ArchivedPost(ctx context.Context, slug string) (*blogsync.Post, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM archive WHERE slug = ?`, slug).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", blogsync.ErrPostNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting post %s: %w", slug, err)
	}

	post, err := blogsync.DeserializePost(data)
	if err != nil {
		return nil, fmt.Errorf("error deserializing post: %w", err)
	}
	return post, nil
}

// SearchArchive searches archived posts with case-insensitive substring
// matching over title, description, and content text.
func (s *SQLiteStore) SearchArchive(ctx context.Context, opts blogsync.ArchiveFilter) ([]*blogsync.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = blogsync.DefaultArchiveLimit
	}

	query := `SELECT data FROM archive WHERE 1=1`
	var args []any

	if opts.Search != "" {
		query += ` AND (title LIKE ? OR description LIKE ? OR content_text LIKE ?)`
		needle := "%" + opts.Search + "%"
		args = append(args, needle, needle, needle)
	}
	if opts.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(opts.Category))
	}

	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error searching for posts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var posts []*blogsync.Post
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("error scanning post: %w", err)
		}
		post, err := blogsync.DeserializePost(data)
		if err != nil {
			return nil, fmt.Errorf("error deserializing post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading posts: %w", err)
	}

	return posts, nil
}

// ClearArchive drops every archived post.
func (s *SQLiteStore) ClearArchive(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM archive`); err != nil {
		return fmt.Errorf("failed to clear archive: %w", err)
	}
	return nil
}

func (s *SQLiteStore) putState(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.db.ExecContext(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) getState(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQLiteStore) deleteState(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

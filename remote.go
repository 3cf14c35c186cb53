package blogsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response from the remote API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// DefaultRequestTimeout bounds every remote call. The web client shipped
// without one, leaving hung requests fetching forever; the client here
// always has a timeout.
const DefaultRequestTimeout = 15 * time.Second

// Remote issues HTTP requests to the backend API. Every request carries
// Content-Type application/json; requests attach a bearer Authorization
// header whenever a session credential exists.
type Remote struct {
	baseURL string
	client  *http.Client
	session *Session
	logger  *slog.Logger
}

// NewRemote creates a Remote for the given base URL. A zero timeout selects
// DefaultRequestTimeout.
func NewRemote(baseURL string, timeout time.Duration, session *Session, logger *slog.Logger) *Remote {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		session: session,
		logger:  logger,
	}
}

func (r *Remote) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := r.baseURL + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	authed := false
	if token, ok := r.session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
		authed = true
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		apiErr := r.apiError(resp)
		if authed && resp.StatusCode == http.StatusUnauthorized {
			// The server no longer honors the stored credential.
			return fmt.Errorf("%w: %s", ErrSessionExpired, apiErr)
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func (r *Remote) apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}

// Me returns the authenticated viewer.
func (r *Remote) Me(ctx context.Context) (*User, error) {
	var user User
	if err := r.do(ctx, http.MethodGet, "auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a bearer token.
func (r *Remote) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var resp struct {
		Token string `json:"token"`
	}
	if err := r.do(ctx, http.MethodPost, "auth/login", body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Register creates an account.
func (r *Remote) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return r.do(ctx, http.MethodPost, "auth/register", body, nil)
}

// PublicPosts returns the public feed.
func (r *Remote) PublicPosts(ctx context.Context) ([]*Post, error) {
	var resp struct {
		Posts []*Post `json:"posts"`
	}
	if err := r.do(ctx, http.MethodGet, "post/public", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// PostBySlug returns one post by its slug.
func (r *Remote) PostBySlug(ctx context.Context, slug string) (*Post, error) {
	var post Post
	err := r.do(ctx, http.MethodGet, "post/"+url.PathEscape(slug), nil, &post)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrPostNotFound, slug)
		}
		return nil, err
	}
	return &post, nil
}

// CreatePostRequest is the publish payload for a new post.
type CreatePostRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Content     *Node    `json:"content"`
	CardType    CardType `json:"postType"`
	Published   bool     `json:"published"`
}

// CreatePost publishes a new post for the authenticated user.
func (r *Remote) CreatePost(ctx context.Context, req CreatePostRequest) error {
	return r.do(ctx, http.MethodPost, "user/post", req, nil)
}

// ToggleLike flips the viewer's like on the given post.
func (r *Remote) ToggleLike(ctx context.Context, postID int64) error {
	return r.do(ctx, http.MethodPost, fmt.Sprintf("post/%d/like", postID), nil, nil)
}

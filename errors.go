package blogsync

import "errors"

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrDraftNotFound    = errors.New("draft not found")
	ErrNoCredential     = errors.New("no session credential")
	ErrSessionExpired   = errors.New("session credential expired")
	ErrInvalidDraft     = errors.New("invalid draft")
	ErrNoCardType       = errors.New("no card type selected")
	ErrWrongStep        = errors.New("operation not allowed at this step")
	ErrNotCached        = errors.New("value not cached")
	ErrAlreadyConnected = errors.New("notifier already connected")
)

package blogsync

import "strings"

// QueryKey is an ordered tuple identifying one cached, server-derived value.
// The first element names the resource kind, the rest are parameters
// (e.g. ["post-slug", "my-first-post"]). Equality is structural.
type QueryKey []string

// NewQueryKey returns a QueryKey from the given parts.
func NewQueryKey(parts ...string) QueryKey {
	return QueryKey(parts)
}

// Canonical keys for the resources the client caches.
func KeyMe() QueryKey                    { return QueryKey{"me"} }
func KeyPublicPosts() QueryKey           { return QueryKey{"public-posts"} }
func KeyPostBySlug(slug string) QueryKey { return QueryKey{"post-slug", slug} }

// String returns the canonical string form of the key. Keys never contain
// the separator in their parts, so the form is unique per key.
func (k QueryKey) String() string {
	return strings.Join(k, "\x1f")
}

// Equal reports whether two keys are structurally equal.
func (k QueryKey) Equal(other QueryKey) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether the key starts with the given prefix tuple.
// Every key is a prefix-match of itself; an empty prefix matches all keys.
func (k QueryKey) HasPrefix(prefix QueryKey) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

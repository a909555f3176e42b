package provider

import (
	"errors"
	"sync/atomic"
)

// ErrNoKeysConfigured is returned by Next when a provider requiring an API
// key has none configured for it (config.tokens.<provider> is empty).
var ErrNoKeysConfigured = errors.New("no api keys configured for provider")

// KeyRotator hands out API keys from an ordered list and rotates past the
// current one on a caller-reported quota error (spec.md §9 Open Question:
// "API-key rotation... out of scope beyond the interface" — this is that
// interface's minimal concrete implementation).
//
// Safe for concurrent use: the cursor is a single atomic counter, so no
// mutex is needed. Every caller gets the same key until a quota error
// advances the cursor; load is not spread across keys otherwise.
type KeyRotator struct {
	keys   []string
	cursor atomic.Uint64
}

// NewKeyRotator returns a KeyRotator over keys, preserving order. An empty
// slice is valid; Next then always returns ErrNoKeysConfigured.
func NewKeyRotator(keys []string) *KeyRotator {
	return &KeyRotator{keys: keys}
}

// Next returns the current key without advancing the cursor.
func (r *KeyRotator) Next() (string, error) {
	if len(r.keys) == 0 {
		return "", ErrNoKeysConfigured
	}
	idx := r.cursor.Load() % uint64(len(r.keys))
	return r.keys[idx], nil
}

// RotateOnQuotaError advances the cursor past the key that just reported a
// quota error, so the next Next call returns the following key.
func (r *KeyRotator) RotateOnQuotaError() {
	if len(r.keys) == 0 {
		return
	}
	r.cursor.Add(1)
}

// Len reports how many keys are configured.
func (r *KeyRotator) Len() int {
	return len(r.keys)
}

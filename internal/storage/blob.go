package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorrupt wraps a blob that exists but cannot be decoded.
var ErrCorrupt = errors.New("corrupt blob")

// Keys used by the application.
const (
	KeyProfile = "soulsync_user"
	KeyPosts   = "soulsync_posts"
	KeyHistory = "soulsync_history"
)

// KV is the minimal key-value contract the domain packages depend on.
// Implemented by *Store.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// GetJSON decodes the blob under key into v. It reports found=false with a
// nil error when the key is absent, and wraps ErrCorrupt when the blob does
// not decode.
func GetJSON(kv KV, key string, v any) (found bool, err error) {
	raw, err := kv.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(kv KV, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", key, err)
	}
	if err := kv.Set(key, string(b)); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

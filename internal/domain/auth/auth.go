// Package auth resolves API keys to user identities.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no API key matches the presented hash.
var ErrKeyNotFound = errors.New("api key not found")

// KeyInfo identifies the user behind a valid API key.
type KeyInfo struct {
	KeyHash string
	UserID  int64
}

// Repository provides API key lookups.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*KeyInfo, error)
}

// HashKey computes the HMAC-SHA256 of a raw API key under the given pepper.
// Only hashes are stored, never raw keys.
func HashKey(pepper, rawKey string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(rawKey))
	return hex.EncodeToString(mac.Sum(nil))
}

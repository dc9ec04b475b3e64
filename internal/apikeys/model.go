// Package apikeys manages machine credentials for the price referential API.
package apikeys

import (
	"errors"
	"time"
)

// Key is a stored API key. Only the bcrypt hash of the secret is persisted;
// the secret itself is returned once at creation time.
type Key struct {
	ID        int64      `json:"id"`
	Prefix    string     `json:"prefixe"`
	Name      string     `json:"nom"`
	Scopes    []string   `json:"scopes"`
	Active    bool       `json:"actif"`
	CreatedAt time.Time  `json:"date_creation"`
	ExpiresAt *time.Time `json:"date_expiration"`
}

// IssuedKey pairs a stored key with its one-time plaintext secret.
type IssuedKey struct {
	Key
	Secret string `json:"cle"`
}

var (
	ErrNotFound   = errors.New("apikeys: not found")
	ErrInvalidKey = errors.New("apikeys: invalid or expired key")
	ErrValidation = errors.New("apikeys: invalid input")
)

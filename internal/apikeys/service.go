package apikeys

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// secretPrefix marks keys issued by this service so misdirected credentials
// are easy to spot in logs and config files.
const secretPrefix = "bpx_"

// Service issues and verifies API keys. The secret format is
// bpx_<prefix>_<random>; the prefix indexes the stored row and the random
// part is checked against the bcrypt hash.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Key, error) {
	return s.repo.List(ctx)
}

// Issue creates a new key. The returned IssuedKey carries the plaintext
// secret exactly once; it cannot be recovered later.
func (s *Service) Issue(ctx context.Context, name string, scopes []string, expiresAt *time.Time) (IssuedKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return IssuedKey{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if expiresAt != nil && expiresAt.Before(time.Now()) {
		return IssuedKey{}, fmt.Errorf("%w: expiry is in the past", ErrValidation)
	}
	if scopes == nil {
		scopes = []string{}
	}

	prefix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	hash, err := bcrypt.GenerateFromPassword([]byte(random), bcrypt.DefaultCost)
	if err != nil {
		return IssuedKey{}, err
	}

	key, err := s.repo.Insert(ctx, Key{
		Prefix:    prefix,
		Name:      name,
		Scopes:    scopes,
		ExpiresAt: expiresAt,
	}, string(hash))
	if err != nil {
		return IssuedKey{}, err
	}
	return IssuedKey{Key: key, Secret: secretPrefix + prefix + "_" + random}, nil
}

// Verify checks a presented secret and returns the key's name, used as the
// acting identity on writes. Inactive and expired keys are rejected.
func (s *Service) Verify(ctx context.Context, secret string) (string, error) {
	rest, ok := strings.CutPrefix(secret, secretPrefix)
	if !ok {
		return "", ErrInvalidKey
	}
	prefix, random, ok := strings.Cut(rest, "_")
	if !ok || prefix == "" || random == "" {
		return "", ErrInvalidKey
	}

	stored, err := s.repo.FindByPrefix(ctx, prefix)
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", err
	}
	if !stored.Active {
		return "", ErrInvalidKey
	}
	if stored.ExpiresAt != nil && stored.ExpiresAt.Before(time.Now()) {
		return "", ErrInvalidKey
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.Hash), []byte(random)) != nil {
		return "", ErrInvalidKey
	}
	return stored.Name, nil
}

// Revoke deactivates a key without deleting its row.
func (s *Service) Revoke(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}

// Package session keeps login sessions in memory with sliding expiration.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expiring-cache-api/internal/cache"

	"github.com/google/uuid"
)

// DefaultTTL is used when Options.TTL is zero.
const DefaultTTL = 30 * time.Minute

var (
	// ErrNotFound is returned when a token does not name a live session.
	ErrNotFound = errors.New("session: not found")

	// ErrTokenCollision is returned when Create cannot find an unused token.
	ErrTokenCollision = errors.New("session: token collision")
)

const createAttempts = 3

// Options controls construction of a Store.
type Options struct {
	TTL       time.Duration
	Scheduler cache.Scheduler
	Logger    *slog.Logger
}

// Store maps session tokens to account ids. A session expires after TTL of
// inactivity: every successful Resolve or Touch restarts its clock.
type Store struct {
	ttl      time.Duration
	cache    *cache.ExpiringCache[string, string]
	logger   *slog.Logger
	newToken func() string
}

// NewStore constructs a Store.
func NewStore(opts Options) (*Store, error) {
	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// Sessions only come from Create, so a miss never produces one.
	c, err := cache.New(func(string) (string, error) {
		return "", ErrNotFound
	}, cache.Options{Name: "sessions", TTL: ttl, Scheduler: opts.Scheduler})
	if err != nil {
		return nil, err
	}
	return &Store{ttl: ttl, cache: c, logger: logger, newToken: uuid.NewString}, nil
}

// TTL returns the inactivity timeout.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create opens a session for accountID and returns its token. A token that
// already names a live session is never handed out again.
func (s *Store) Create(accountID string) (string, error) {
	for i := 0; i < createAttempts; i++ {
		token := s.newToken()
		if _, taken := s.cache.GetIfPresent(token); taken {
			continue
		}
		if _, err := s.cache.Put(token, accountID, s.ttl); err != nil {
			return "", fmt.Errorf("session: create: %w", err)
		}
		return token, nil
	}
	return "", ErrTokenCollision
}

// Resolve returns the account id of a live session and extends it. Unknown and
// expired tokens report false.
func (s *Store) Resolve(token string) (string, bool) {
	accountID, err := s.cache.Get(token)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("session: resolve failed", slog.String("error", err.Error()))
		}
		return "", false
	}
	if _, err := s.cache.ResetExpiry(token, s.ttl); err != nil {
		s.logger.Warn("session: extend failed", slog.String("error", err.Error()))
	}
	return accountID, true
}

// Touch extends a live session without reading it. It reports false when the
// session is gone or could not be extended.
func (s *Store) Touch(token string) bool {
	present, err := s.cache.ResetExpiry(token, s.ttl)
	if err != nil {
		s.logger.Warn("session: touch failed", slog.String("error", err.Error()))
		return false
	}
	return present
}

// Revoke ends a session immediately.
func (s *Store) Revoke(token string) {
	s.cache.Remove(token)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}

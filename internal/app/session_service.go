package app

import (
	"context"
	"time"

	"story-endings/internal/logging"
	"story-endings/internal/pkg/jwtutil"
)

// RevocationStore blocks logged-out tokens until they expire.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// UserChecker confirms that a session's username still exists.
type UserChecker interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// SessionService issues and checks the signed session tokens kept in the client's cookie.
type SessionService struct {
	users       UserChecker
	revocations RevocationStore
	secret      string
	ttl         time.Duration
	logger      logging.Logger
}

// NewSessionService builds the session manager. revocations may be nil, in which
// case logout only clears the client cookie.
func NewSessionService(users UserChecker, revocations RevocationStore, secret string, ttl time.Duration, logger logging.Logger) *SessionService {
	return &SessionService{
		users:       users,
		revocations: revocations,
		secret:      secret,
		ttl:         ttl,
		logger:      logger,
	}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Start returns a token binding the client to username.
func (s *SessionService) Start(username string) (string, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return "", invalidInput("session username is empty")
	}
	return jwtutil.GenerateToken(s.secret, s.ttl, username)
}

// Resolve returns the username bound to token. Bad signatures, expired or revoked
// tokens, and users that no longer exist resolve to ("", false, nil). A failing
// revocation or user store is returned as ErrStoreUnavailable so the caller can
// keep the session instead of discarding it.
func (s *SessionService) Resolve(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	claims, err := jwtutil.ParseToken(s.secret, token)
	if err != nil {
		return "", false, nil
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Warn(ctx, "session revocation check failed", "error", err)
			return "", false, storeUnavailable(err)
		}
		if revoked {
			return "", false, nil
		}
	}

	exists, err := s.users.Exists(ctx, claims.Username)
	if err != nil {
		s.logger.Warn(ctx, "session user lookup failed", "username", claims.Username, "error", err)
		return "", false, storeUnavailable(err)
	}
	if !exists {
		return "", false, nil
	}
	return claims.Username, true, nil
}

// End revokes token for the rest of its lifetime. It is a no-op for empty,
// invalid or already expired tokens.
func (s *SessionService) End(ctx context.Context, token string) error {
	if token == "" || s.revocations == nil {
		return nil
	}

	claims, err := jwtutil.ParseToken(s.secret, token)
	if err != nil {
		return nil
	}

	return s.revocations.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

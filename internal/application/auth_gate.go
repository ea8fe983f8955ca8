package application

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/infrastructure/redisstore"
	"github.com/oksasatya/redis-task-tracker/pkg/helpers"
)

// DefaultRevocationTTL bounds how long a revocation marker is kept.
const DefaultRevocationTTL = 24 * time.Hour

func blacklistKey(token string) string { return "jwt:blacklist:" + token }

// Gate turns an Authorization header into an Identity and keeps the
// revocation list.
type Gate struct {
	store         *redisstore.Store
	jwt           *helpers.JWTManager
	logger        *logrus.Logger
	revocationTTL time.Duration
	now           func() time.Time
}

func NewGate(store *redisstore.Store, jwt *helpers.JWTManager, logger *logrus.Logger, revocationTTL time.Duration) *Gate {
	if revocationTTL <= 0 {
		revocationTTL = DefaultRevocationTTL
	}
	return &Gate{store: store, jwt: jwt, logger: logger, revocationTTL: revocationTTL, now: time.Now}
}

// Authenticate accepts "Bearer <token>". The revocation list is consulted
// before the signature. Every rejection returns ErrUnauthenticated; the cause
// is only logged at debug level. Store failures are returned as they are.
func (g *Gate) Authenticate(ctx context.Context, authHeader string) (Identity, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(authHeader), " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return Identity{}, g.reject("missing token", nil)
	}

	revoked, err := g.store.Exists(ctx, blacklistKey(token))
	if err != nil {
		return Identity{}, err
	}
	if revoked {
		return Identity{}, g.reject("revoked token", nil)
	}

	claims, err := g.jwt.Parse(token)
	if err != nil {
		return Identity{}, g.reject("invalid or expired token", err)
	}
	uid, _ := claims.UserID()
	ident := Identity{userID: uid, email: claims.Email, token: token}
	if claims.ExpiresAt != nil {
		ident.expiresAt = claims.ExpiresAt.Time
	}
	return ident, nil
}

func (g *Gate) reject(reason string, cause error) error {
	if g.logger != nil {
		entry := g.logger.WithField("reason", reason)
		if cause != nil {
			entry = entry.WithError(cause)
		}
		entry.Debug("authentication rejected")
	}
	return ErrUnauthenticated
}

// Revoke blacklists the identity's token. The marker lives for the revocation
// TTL but never longer than the token itself would have.
func (g *Gate) Revoke(ctx context.Context, ident Identity) error {
	if ident.token == "" {
		return ErrUnauthenticated
	}
	ttl := g.revocationTTL
	if !ident.expiresAt.IsZero() {
		if left := ident.expiresAt.Sub(g.now()); left < ttl {
			ttl = left
		}
	}
	if ttl <= 0 {
		return nil
	}
	return g.store.Set(ctx, blacklistKey(ident.token), map[string]bool{"revoked": true}, ttl)
}

package pocketbase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/studio-site/pkg/logging"
)

const (
	// tokenRefreshMargin is how long before expiry a cached token stops being reused.
	tokenRefreshMargin = 60 * time.Second
	// fallbackTokenTTL applies when the token's exp claim cannot be decoded.
	fallbackTokenTTL = 4 * time.Minute
)

// ErrCredentialsMissing is returned when the service account is not configured.
var ErrCredentialsMissing = errors.New("pocketbase: service account credentials not configured")

// TokenSource hands out bearer tokens for the service account.
type TokenSource interface {
	Token(ctx context.Context, forceRefresh bool) (string, error)
}

// CachedToken is a bearer token with its absolute expiry.
type CachedToken struct {
	Token     string
	ExpiresAt time.Time
}

// usable reports whether more than the refresh margin remains.
func (t *CachedToken) usable(now time.Time) bool {
	return t != nil && t.Token != "" && now.Add(tokenRefreshMargin).Before(t.ExpiresAt)
}

// RefreshObserver is notified after every authentication attempt.
type RefreshObserver interface {
	ObserveTokenRefresh(result string)
}

// ServiceAccount holds the identity used to authenticate against an auth collection.
type ServiceAccount struct {
	Collection string
	Identity   string
	Password   string
}

// TokenProvider caches the service account token for the life of the process.
type TokenProvider struct {
	client   *Client
	account  ServiceAccount
	logger   *logging.Logger
	observer RefreshObserver
	now      func() time.Time

	mu     sync.RWMutex
	cached *CachedToken
	group  singleflight.Group
}

// NewTokenProvider creates a provider for the given service account.
func NewTokenProvider(client *Client, account ServiceAccount, logger *logging.Logger) *TokenProvider {
	if logger == nil {
		logger = logging.Default()
	}
	if account.Collection == "" {
		account.Collection = "users"
	}
	return &TokenProvider{
		client:  client,
		account: account,
		logger:  logger.WithComponent("pocketbase_auth"),
		now:     time.Now,
	}
}

// WithObserver attaches a refresh observer (metrics).
func (p *TokenProvider) WithObserver(observer RefreshObserver) *TokenProvider {
	p.observer = observer
	return p
}

// Configured reports whether credentials are present.
func (p *TokenProvider) Configured() bool {
	return strings.TrimSpace(p.account.Identity) != "" && p.account.Password != ""
}

// Token returns the cached token while it has more than a minute left,
// otherwise authenticates again. Concurrent refreshes share one request.
func (p *TokenProvider) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if !p.Configured() {
		return "", ErrCredentialsMissing
	}

	if !forceRefresh {
		p.mu.RLock()
		cached := p.cached
		p.mu.RUnlock()
		if cached.usable(p.now()) {
			return cached.Token, nil
		}
	}

	// The shared refresh outlives any one caller's cancellation; the HTTP
	// client timeout still bounds it.
	refreshCtx := context.WithoutCancel(ctx)
	v, err, _ := p.group.Do("token", func() (any, error) {
		return p.refresh(refreshCtx)
	})
	if err != nil {
		return "", err
	}
	return v.(*CachedToken).Token, nil
}

func (p *TokenProvider) refresh(ctx context.Context) (*CachedToken, error) {
	ctx, span := tracer.Start(ctx, "pocketbase.auth_with_password")
	defer span.End()
	span.SetAttributes(attribute.String("pocketbase.collection", p.account.Collection))

	token, err := p.client.authWithPassword(ctx, p.account.Collection, p.account.Identity, p.account.Password)
	if err != nil {
		span.RecordError(err)
		p.observe("error")
		p.logger.Error("service account auth failed", "collection", p.account.Collection, "error", err)
		return nil, fmt.Errorf("pocketbase: service auth failed: %w", err)
	}

	expiresAt, ok := TokenExpiry(token)
	if !ok {
		expiresAt = p.now().Add(fallbackTokenTTL)
		p.logger.Warn("could not decode token expiry, using fallback ttl", "ttl", fallbackTokenTTL)
	}

	cached := &CachedToken{Token: token, ExpiresAt: expiresAt}
	p.mu.Lock()
	p.cached = cached
	p.mu.Unlock()

	p.observe("ok")
	p.logger.Debug("service account token refreshed", "expires_at", expiresAt)
	return cached, nil
}

func (p *TokenProvider) observe(result string) {
	if p.observer != nil {
		p.observer.ObserveTokenRefresh(result)
	}
}

// TokenExpiry decodes the exp claim of a JWT without verifying its
// signature; the token came straight from the issuer.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

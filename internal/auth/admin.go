package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/thomas/mayhem-terminal-go/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("admin login required")
	ErrAdminDisabled      = errors.New("admin panel is not configured")
)

// DefaultTokenTTL is how long an admin login lasts.
const DefaultTokenTTL = 12 * time.Hour

// Provider checks admin credentials and issues tokens. A real identity
// service can replace StaticProvider without touching its callers.
type Provider interface {
	Login(ctx context.Context, email, password string) (token string, err error)
	Verify(token string) (email string, err error)
}

// Claims are the admin token claims.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// StaticProvider accepts the single configured credential pair and issues
// HS256 tokens.
type StaticProvider struct {
	email    string
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewStaticProvider returns a provider for one admin account.
func NewStaticProvider(email, password, secret string, ttl time.Duration) *StaticProvider {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &StaticProvider{
		email:    strings.ToLower(strings.TrimSpace(email)),
		password: password,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (p *StaticProvider) Login(_ context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(p.email))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(p.password))
	if emailOK&passOK != 1 {
		return "", ErrInvalidCredentials
	}

	now := p.now()
	claims := Claims{
		Email: p.email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("signing admin token: %w", err)
	}
	return signed, nil
}

func (p *StaticProvider) Verify(token string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Email != p.email {
		return "", ErrUnauthorized
	}
	return claims.Email, nil
}

// ============================================
// Guard
// ============================================

// AdminSession is what the guard stores under admin_auth.
type AdminSession struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email"`
	Token         string `json:"token"`
}

// Guard gates the admin views of one shopper session and remembers the
// login in their bucket.
type Guard struct {
	provider Provider
	bucket   *storage.Bucket
	logger   *log.Logger
}

// NewGuard returns a guard. A nil provider disables the admin panel.
func NewGuard(provider Provider, bucket *storage.Bucket, logger *log.Logger) *Guard {
	return &Guard{provider: provider, bucket: bucket, logger: logger}
}

// Enabled reports whether an admin provider is configured.
func (g *Guard) Enabled() bool {
	return g.provider != nil
}

// Login checks the credentials and persists the session.
func (g *Guard) Login(ctx context.Context, email, password string) (AdminSession, error) {
	if !g.Enabled() {
		return AdminSession{}, ErrAdminDisabled
	}

	token, err := g.provider.Login(ctx, email, password)
	if err != nil {
		g.logger.Warn("admin login failed", "email", email, "namespace", g.bucket.Namespace())
		return AdminSession{}, err
	}

	sess := AdminSession{Authenticated: true, Email: strings.ToLower(strings.TrimSpace(email)), Token: token}
	if err := g.bucket.PutJSON(ctx, storage.KeyAdminAuth, sess); err != nil {
		return AdminSession{}, fmt.Errorf("saving admin session: %w", err)
	}
	g.logger.Info("admin logged in", "email", sess.Email)
	return sess, nil
}

// Require returns the admin email of a valid stored session, or
// ErrUnauthorized. A stored session whose token no longer verifies is
// removed.
func (g *Guard) Require(ctx context.Context) (string, error) {
	if !g.Enabled() {
		return "", ErrAdminDisabled
	}

	var sess AdminSession
	if err := g.bucket.GetJSON(ctx, storage.KeyAdminAuth, &sess); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			g.logger.Warn("admin session unreadable", "err", err)
		}
		return "", ErrUnauthorized
	}
	if !sess.Authenticated || sess.Token == "" {
		return "", ErrUnauthorized
	}

	email, err := g.provider.Verify(sess.Token)
	if err != nil {
		g.logger.Info("admin session rejected", "err", err)
		if derr := g.bucket.Delete(ctx, storage.KeyAdminAuth); derr != nil {
			g.logger.Warn("removing stale admin session", "err", derr)
		}
		return "", ErrUnauthorized
	}
	return email, nil
}

// Logout forgets the stored session.
func (g *Guard) Logout(ctx context.Context) error {
	if err := g.bucket.Delete(ctx, storage.KeyAdminAuth); err != nil {
		return fmt.Errorf("clearing admin session: %w", err)
	}
	return nil
}

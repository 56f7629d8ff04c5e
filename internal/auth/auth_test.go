package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/thomas/mayhem-terminal-go/internal/logging"
	"github.com/thomas/mayhem-terminal-go/internal/storage"
)

func newKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return key
}

func TestLoadAllowlist(t *testing.T) {
	allowed := newKey(t)
	stranger := newKey(t)

	path := filepath.Join(t.TempDir(), "allowlist")
	require.NoError(t, CreateEmptyAllowlist(path))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write(ssh.MarshalAuthorizedKey(allowed))
	require.NoError(t, err)
	_, err = f.WriteString("ssh-ed25519 not-base64 broken\n\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	list, skipped, err := LoadAllowlist(path)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Len())
	assert.Equal(t, 1, skipped)
	assert.True(t, list.Allows(allowed))
	assert.False(t, list.Allows(stranger))
	assert.False(t, list.Allows(nil))
}

func TestLoadAllowlistMissing(t *testing.T) {
	_, _, err := LoadAllowlist(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrAllowlistNotFound)
}

func TestFingerprint(t *testing.T) {
	key := newKey(t)
	fp := Fingerprint(key)
	assert.True(t, strings.HasPrefix(fp, "SHA256:"))
	assert.Equal(t, fp, Fingerprint(key))
	assert.NotEqual(t, fp, Fingerprint(newKey(t)))
	assert.Empty(t, Fingerprint(nil))
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider("Admin@Mayhem.test", "hunter2", "secret", time.Hour)
	ctx := context.Background()

	_, err := p.Login(ctx, "admin@mayhem.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = p.Login(ctx, "other@mayhem.test", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := p.Login(ctx, " ADMIN@mayhem.test ", "hunter2")
	require.NoError(t, err)

	email, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@mayhem.test", email)

	other := NewStaticProvider("admin@mayhem.test", "hunter2", "different-secret", time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestStaticProviderExpiry(t *testing.T) {
	p := NewStaticProvider("admin@mayhem.test", "pw", "secret", time.Hour)
	now := time.Now()
	p.now = func() time.Time { return now }

	token, err := p.Login(context.Background(), "admin@mayhem.test", "pw")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = p.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGuard(t *testing.T) {
	ctx := context.Background()
	bucket := storage.NewBucket(storage.NewMemory(), "SHA256:admin")
	provider := NewStaticProvider("admin@mayhem.test", "pw", "secret", time.Hour)
	g := NewGuard(provider, bucket, logging.Discard())

	_, err := g.Require(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = g.Login(ctx, "admin@mayhem.test", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := g.Login(ctx, "admin@mayhem.test", "pw")
	require.NoError(t, err)
	assert.True(t, sess.Authenticated)

	// A new guard over the same bucket sees the stored login.
	again := NewGuard(provider, bucket, logging.Discard())
	email, err := again.Require(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin@mayhem.test", email)

	require.NoError(t, again.Logout(ctx))
	_, err = g.Require(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGuardDropsForgedSession(t *testing.T) {
	ctx := context.Background()
	bucket := storage.NewBucket(storage.NewMemory(), "SHA256:admin")
	require.NoError(t, bucket.PutJSON(ctx, storage.KeyAdminAuth,
		AdminSession{Authenticated: true, Email: "admin@mayhem.test", Token: "forged"}))

	g := NewGuard(NewStaticProvider("admin@mayhem.test", "pw", "secret", time.Hour), bucket, logging.Discard())
	_, err := g.Require(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = bucket.Get(ctx, storage.KeyAdminAuth)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGuardDisabled(t *testing.T) {
	g := NewGuard(nil, storage.NewBucket(storage.NewMemory(), "ns"), logging.Discard())
	assert.False(t, g.Enabled())

	_, err := g.Login(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrAdminDisabled)
	_, err = g.Require(context.Background())
	assert.ErrorIs(t, err, ErrAdminDisabled)
}

// Package auth covers who may connect over SSH and who may use the admin
// panel.
package auth

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ErrAllowlistNotFound is returned when the allowlist file doesn't exist.
var ErrAllowlistNotFound = errors.New("allowlist file not found")

// Allowlist is a set of public keys, indexed by SHA256 fingerprint.
type Allowlist struct {
	keys map[string]ssh.PublicKey
}

// NewAllowlist builds an allowlist from keys.
func NewAllowlist(keys ...ssh.PublicKey) *Allowlist {
	a := &Allowlist{keys: make(map[string]ssh.PublicKey, len(keys))}
	for _, k := range keys {
		a.keys[Fingerprint(k)] = k
	}
	return a
}

// LoadAllowlist reads an OpenSSH authorized_keys file. Blank lines and
// comments are skipped; so are lines that do not parse, which are reported
// through the skipped count.
func LoadAllowlist(path string) (a *Allowlist, skipped int, err error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrAllowlistNotFound
		}
		return nil, 0, fmt.Errorf("opening allowlist: %w", err)
	}
	defer file.Close()

	a = NewAllowlist()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			skipped++
			continue
		}
		a.keys[Fingerprint(key)] = key
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading allowlist: %w", err)
	}
	return a, skipped, nil
}

// Allows reports whether key is on the list.
func (a *Allowlist) Allows(key ssh.PublicKey) bool {
	if a == nil || key == nil {
		return false
	}
	_, ok := a.keys[Fingerprint(key)]
	return ok
}

// Len returns the number of distinct keys.
func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// CreateEmptyAllowlist creates an empty allowlist file with a helpful comment.
func CreateEmptyAllowlist(path string) error {
	content := `# Shoppers allowed to connect when SSH_AUTH_MODE=allowlist.
# One public key per line in OpenSSH authorized_keys format, e.g.
# ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIExample... shopper@host
`
	return os.WriteFile(path, []byte(content), 0o644)
}

// Fingerprint returns the SHA256 fingerprint of key, e.g. "SHA256:abc...".
// It names the shopper's storage namespace.
func Fingerprint(key ssh.PublicKey) string {
	if key == nil {
		return ""
	}
	return ssh.FingerprintSHA256(key)
}

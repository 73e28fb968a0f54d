// Package vault encrypts and decrypts source credentials at rest.
//
// It is grounded on rclone's backend/crypt/cipher.go, which seals file
// contents with golang.org/x/crypto/nacl/secretbox under a random nonce per
// message. Where cipher.go derives its key from a user password via scrypt,
// Open generates a fresh random key on first use and persists it next to the
// catalog database, per the specification's auto-generated-key model.
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/nasindex/nasindex/internal/nerrors"
)

// prefix marks a value as ciphertext produced by this package. Values
// without it are treated as legacy plaintext and transparently migrated.
const prefix = "enc:"

const keyFileName = ".encryption_key"

// Vault encrypts and decrypts small UTF-8 strings (source credentials).
type Vault struct {
	key [32]byte
}

// Open loads the key file adjacent to dir, generating one if absent.
// The key file is written with 0o600 permissions, matching the
// specification's key-handling contract.
func Open(dir string) (*Vault, error) {
	path := filepath.Join(dir, keyFileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) != 32 {
			return nil, nerrors.Wrap(nerrors.EKeyLost, "encryption key file is corrupt", nil)
		}
		v := &Vault{}
		copy(v.key[:], data)
		return v, nil
	case errors.Is(err, os.ErrNotExist):
		var key [32]byte
		if _, rerr := rand.Read(key[:]); rerr != nil {
			return nil, fmt.Errorf("generating encryption key: %w", rerr)
		}
		if werr := os.WriteFile(path, key[:], 0o600); werr != nil {
			return nil, fmt.Errorf("persisting encryption key: %w", werr)
		}
		return &Vault{key: key}, nil
	default:
		return nil, fmt.Errorf("reading encryption key: %w", err)
	}
}

// IsEncrypted reports whether value is ciphertext produced by Encrypt.
// Per the specification, empty or absent values are never "encrypted".
func IsEncrypted(value string) bool {
	return len(value) > len(prefix) && value[:len(prefix)] == prefix
}

// Encrypt seals plaintext under a fresh random nonce. Empty input passes
// through unchanged, and successive calls on the same plaintext yield
// distinct ciphertexts.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &v.key)
	return prefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt recovers the plaintext sealed by Encrypt. Plaintext legacy values
// (no prefix) pass through unchanged, which is how the source manager
// transparently migrates pre-vault credential files.
func (v *Vault) Decrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if !IsEncrypted(value) {
		return value, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value[len(prefix):])
	if err != nil {
		return "", nerrors.Wrap(nerrors.EKeyLost, "malformed ciphertext", err)
	}
	if len(raw) < 24 {
		return "", nerrors.New(nerrors.EKeyLost, "ciphertext too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &v.key)
	if !ok {
		return "", nerrors.New(nerrors.EKeyLost, "decryption failed: wrong or lost key")
	}
	return string(plain), nil
}

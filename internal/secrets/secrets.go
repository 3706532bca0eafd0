// Package secrets decrypts credential fields stored at rest with an
// ENC:: prefix. Values without the prefix pass through unchanged, so
// plaintext dev fixtures and encrypted production rows read the same way.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const encPrefix = "ENC::"

const nonceSize = 24

var ErrDecrypt = errors.New("secrets: unable to decrypt value")

// Decrypter resolves a stored credential to its usable form. Callers never
// see the raw-vs-encrypted distinction.
type Decrypter interface {
	Decrypt(stored string) (string, error)
}

// SecretBox is a Decrypter backed by nacl/secretbox with a static 32-byte key.
type SecretBox struct {
	key [32]byte
}

// NewSecretBox builds a SecretBox from a base64-encoded 32-byte key.
func NewSecretBox(encodedKey string) (*SecretBox, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("secrets: decoding key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("secrets: key must be 32 bytes, got %d", len(raw))
	}
	sb := &SecretBox{}
	copy(sb.key[:], raw)
	return sb, nil
}

func (s *SecretBox) Decrypt(stored string) (string, error) {
	if !strings.HasPrefix(stored, encPrefix) {
		return stored, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(raw) < nonceSize {
		return "", ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// Encrypt seals a value for storage. Used by provisioning tooling and tests.
func (s *SecretBox) Encrypt(value string) (string, error) {
	if value == "" {
		return value, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secrets: generating nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return encPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Plaintext is a Decrypter for deployments without an encryption key.
// ENC:: values cannot be resolved and surface as configuration errors.
type Plaintext struct{}

func (Plaintext) Decrypt(stored string) (string, error) {
	if strings.HasPrefix(stored, encPrefix) {
		return "", fmt.Errorf("%w: encrypted value but no encryption key configured", ErrDecrypt)
	}
	return stored, nil
}

var (
	_ Decrypter = (*SecretBox)(nil)
	_ Decrypter = Plaintext{}
)

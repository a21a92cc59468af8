// Package vault keeps mailbox OAuth tokens encrypted at rest and turns them
// into usable access tokens, refreshing them against the provider when they
// expire.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecrypt is returned for ciphertext that is truncated, tampered with or
// sealed under another key.
var ErrDecrypt = errors.New("token decryption failed")

// Cipher seals tokens with XChaCha20-Poly1305. Output is nonce || sealed box.
type Cipher struct {
	aead cipher.AEAD
}

func NewCipher(key []byte) (*Cipher, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

func (c *Cipher) Encrypt(plain string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, []byte(plain), nil), nil
}

func (c *Cipher) Decrypt(sealed []byte) (string, error) {
	ns := c.aead.NonceSize()
	if len(sealed) < ns+c.aead.Overhead() {
		return "", ErrDecrypt
	}
	plain, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// encryptOptional maps an empty token to nil so the store keeps the
// previous value.
func (c *Cipher) encryptOptional(plain string) ([]byte, error) {
	if plain == "" {
		return nil, nil
	}
	return c.Encrypt(plain)
}

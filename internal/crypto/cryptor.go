// Package crypto provides the opaque transit encryption collaborator used
// by the sync engine and bulk transfer. Payloads are sealed with
// AES-256-GCM under a key derived from a configured passphrase.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLen     = 32
	kdfRounds  = 4096
	saltString = "reqledger/transit/v1"
)

// Cryptor is the encryption contract consumed by the sync components. A
// disabled cryptor leaves payloads in plaintext.
type Cryptor interface {
	Enabled() bool
	// Encrypt seals plaintext and returns a self-contained base64 string
	// (nonce prefix + ciphertext).
	Encrypt(plain []byte) (string, error)
	// Decrypt reverses Encrypt.
	Decrypt(data string) ([]byte, error)
}

type gcmCryptor struct {
	key []byte
}

// NewCryptor derives a 32-byte AES key from passphrase. An empty passphrase
// yields a disabled cryptor.
func NewCryptor(passphrase string) Cryptor {
	if passphrase == "" {
		return &gcmCryptor{}
	}

	key := pbkdf2.Key([]byte(passphrase), []byte(saltString), kdfRounds, keyLen, sha256.New)
	return &gcmCryptor{key: key}
}

func (c *gcmCryptor) Enabled() bool {
	return len(c.key) == keyLen
}

func (c *gcmCryptor) Encrypt(plain []byte) (string, error) {
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return "", err
	}

	ct := gcm.Seal(nil, nonce, plain, nil)
	blob := append(nonce, ct...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

func (c *gcmCryptor) Decrypt(data string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	gcm, err := c.aead()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(blob) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ct := blob[:nonceSize], blob[nonceSize:]
	return gcm.Open(nil, nonce, ct, nil)
}

func (c *gcmCryptor) aead() (cipher.AEAD, error) {
	if !c.Enabled() {
		return nil, ErrCryptorDisabled
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// ErrCryptorDisabled is returned when Encrypt or Decrypt is called on a
// cryptor constructed without a passphrase.
var ErrCryptorDisabled = errors.New("cryptor is disabled")

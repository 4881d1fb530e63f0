// Package vault encrypts provider credentials at rest using AES-256-GCM.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strings"
)

// maskPlaceholder is returned for secrets too short to partially reveal.
const maskPlaceholder = "********"

// Vault is a symmetric credential cipher. A fresh random IV is generated per
// Encrypt call and prepended to the output as "ivHex:cipherHex", so decryption
// is self-describing and no IV state lives anywhere else.
type Vault struct {
	aead cipher.AEAD
}

// New creates a Vault from a hex-encoded 32-byte master key.
func New(masterKeyHex string) (*Vault, error) {
	key, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("vault: invalid master key hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("vault: master key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// GenerateMasterKey returns a random 32-byte key as a hex string (64 chars).
func GenerateMasterKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("vault: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt encrypts plaintext and returns "ivHex:cipherHex".
func (v *Vault) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("vault: generating iv: %w", err)
	}

	ciphertext := v.aead.Seal(nil, iv, []byte(plaintext), nil)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. It fails closed: malformed input (wrong part
// count, bad hex, tamper) yields "" and a log line, never an error. Callers
// treat an empty result as "credential absent".
func (v *Vault) Decrypt(ciphertext string) string {
	parts := strings.Split(ciphertext, ":")
	if len(parts) != 2 {
		log.Printf("[vault] decrypt: malformed input (%d parts)", len(parts))
		return ""
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != v.aead.NonceSize() {
		log.Printf("[vault] decrypt: bad iv")
		return ""
	}
	data, err := hex.DecodeString(parts[1])
	if err != nil {
		log.Printf("[vault] decrypt: bad ciphertext hex")
		return ""
	}

	plaintext, err := v.aead.Open(nil, iv, data, nil)
	if err != nil {
		log.Printf("[vault] decrypt: authentication failed")
		return ""
	}
	return string(plaintext)
}

// Mask reveals only the first and last 4 characters of a secret for admin
// display. Secrets shorter than 8 characters are fully masked.
func (v *Vault) Mask(plaintext string) string {
	if len(plaintext) < 8 {
		return maskPlaceholder
	}
	return plaintext[:4] + strings.Repeat("*", len(plaintext)-8) + plaintext[len(plaintext)-4:]
}

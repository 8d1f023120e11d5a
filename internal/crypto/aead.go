package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const nonceSize = 12 // 96-bit nonce per field, per spec §4.B.

// EncryptField encrypts plaintext under a fresh random 96-bit nonce,
// returning base64-encoded ciphertext and nonce suitable for wire
// envelopes.
func EncryptField(key [32]byte, plaintext []byte) (ciphertextB64, nonceB64 string, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), base64.StdEncoding.EncodeToString(nonce), nil
}

// DecryptField reverses EncryptField.
func DecryptField(key [32]byte, ciphertextB64, nonceB64 string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	if len(nonce) != nonceSize {
		return nil, fmt.Errorf("invalid nonce length %d", len(nonce))
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptString is a convenience wrapper for string fields.
func EncryptString(key [32]byte, plaintext string) (ciphertextB64, nonceB64 string, err error) {
	return EncryptField(key, []byte(plaintext))
}

// DecryptString is a convenience wrapper for string fields.
func DecryptString(key [32]byte, ciphertextB64, nonceB64 string) (string, error) {
	pt, err := DecryptField(key, ciphertextB64, nonceB64)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

func newGCM(key [32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm, nil
}

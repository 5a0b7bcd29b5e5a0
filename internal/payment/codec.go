package payment

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// FieldCodec encrypts selected fields at the persistence boundary. The
// repository applies it to InvoiceData.TaxID before writing and after
// reading; the rest of the system only ever sees plaintext.
type FieldCodec struct {
	aead cipher.AEAD
}

// NewFieldCodec derives an AES-256-GCM key from the given secret. An
// empty secret yields a pass-through codec (useful in tests and local
// setups without fiscal data).
func NewFieldCodec(secret string) (*FieldCodec, error) {
	if secret == "" {
		return &FieldCodec{}, nil
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to init field codec: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init field codec: %w", err)
	}

	return &FieldCodec{aead: aead}, nil
}

func (c *FieldCodec) Encode(plaintext string) (string, error) {
	if c.aead == nil {
		return plaintext, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to encrypt field: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *FieldCodec) Decode(encoded string) (string, error) {
	if c.aead == nil {
		return encoded, nil
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt field: %w", err)
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", errors.New("failed to decrypt field: ciphertext too short")
	}

	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt field: %w", err)
	}

	return string(plaintext), nil
}

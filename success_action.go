package lnurl

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	SuccessActionMessage = "message"
	SuccessActionURL     = "url"
	SuccessActionAES     = "aes"
)

// SuccessAction is the LUD-09 action a wallet performs after paying an
// lnurl-pay invoice. Actions with unknown tags are kept as they are.
type SuccessAction struct {
	Tag         string `json:"tag"`
	Message     string `json:"message,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`

	// Ciphertext and IV are base64 encoded LUD-10 fields.
	Ciphertext string `json:"ciphertext,omitempty"`
	IV         string `json:"iv,omitempty"`
}

// Known reports whether the action has a known tag and carries the fields
// that tag requires.
func (s *SuccessAction) Known() bool {
	switch s.Tag {
	case SuccessActionMessage:
		return s.Message != ""

	case SuccessActionURL:
		return s.URL != "" && s.Description != ""

	case SuccessActionAES:
		return s.Description != "" && s.Ciphertext != "" && s.IV != ""

	default:
		return false
	}
}

// Decrypt recovers the plaintext of an aes action using the payment
// preimage as the AES-256-CBC key.
func (s *SuccessAction) Decrypt(preimage [32]byte) (string, error) {
	if s.Tag != SuccessActionAES {
		return "", fmt.Errorf("not an aes success action: %s", s.Tag)
	}

	iv, err := base64.StdEncoding.DecodeString(s.IV)
	if err != nil {
		return "", fmt.Errorf("invalid iv: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("iv length is %d, not %d", len(iv),
			aes.BlockSize)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(s.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", errors.New("ciphertext is not a whole number of " +
			"blocks")
	}

	block, err := aes.NewCipher(preimage[:])
	if err != nil {
		return "", err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpad(plaintext)
}

// unpad strips PKCS#7 padding.
func unpad(b []byte) (string, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return "", errors.New("decryption failed")
	}

	if !bytes.Equal(b[len(b)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return "", errors.New("decryption failed")
	}

	return string(b[:len(b)-n]), nil
}

package lnurltest

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"

	"github.com/lightningnetwork/lnd/lntypes"
)

// aesSuccessAction encrypts msg with the preimage as a LUD-10 action.
func aesSuccessAction(msg string, preimage lntypes.Preimage) (
	map[string]string, error) {

	block, err := aes.NewCipher(preimage[:])
	if err != nil {
		return nil, err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	pad := aes.BlockSize - len(msg)%aes.BlockSize
	plaintext := append(
		[]byte(msg), bytes.Repeat([]byte{byte(pad)}, pad)...,
	)

	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	return map[string]string{
		"tag":         "aes",
		"description": "your code",
		"ciphertext":  base64.StdEncoding.EncodeToString(ciphertext),
		"iv":          base64.StdEncoding.EncodeToString(iv),
	}, nil
}

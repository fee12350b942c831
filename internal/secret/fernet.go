// Package secret encrypts provider credentials at rest using fernet tokens.
package secret

import (
	"fmt"

	"github.com/fernet/fernet-go"
)

// EncryptToken encrypts a plaintext credential with the given base64 fernet key.
func EncryptToken(key, plaintext string) (string, error) {
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to decode fernet key: %w", err)
	}

	tok, err := fernet.EncryptAndSign([]byte(plaintext), k)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt token: %w", err)
	}

	return string(tok), nil
}

// DecryptToken decrypts a fernet ciphertext produced by EncryptToken.
// Tokens do not expire; rotation happens by re-encrypting with a new key.
func DecryptToken(key, ciphertext string) (string, error) {
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to decode fernet key: %w", err)
	}

	plain := fernet.VerifyAndDecrypt([]byte(ciphertext), 0, []*fernet.Key{k})
	if plain == nil {
		return "", fmt.Errorf("failed to decrypt token: invalid ciphertext or key")
	}

	return string(plain), nil
}

// GenerateKey creates a new random fernet key in its base64 form.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate fernet key: %w", err)
	}
	return k.Encode(), nil
}

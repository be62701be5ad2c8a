package crypto

import (
	"errors"

	"golang.org/x/crypto/argon2"
)

var ErrSecretNotSet = errors.New("security secret is empty")

// Key derivation parameters. The salt is fixed so every replica derives the
// same key from the shared secret.
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
	kdfSalt    = "tirek-dashboard/session-token/v1"
)

// TokenCipher encrypts monitoring API bearer tokens before they reach the
// session store. The session id is bound as additional data, so a ciphertext
// copied to another session row does not open.
type TokenCipher struct {
	key        []byte
	signingKey []byte
}

// NewTokenCipher derives an AES-256 key from secret with argon2id.
func NewTokenCipher(secret string) (*TokenCipher, error) {
	if secret == "" {
		return nil, ErrSecretNotSet
	}
	key := argon2.IDKey([]byte(secret), []byte(kdfSalt), kdfTime, kdfMemory, kdfThreads, 32)
	signingKey := argon2.IDKey(key, []byte(kdfSalt+"/cookie"), kdfTime, kdfMemory, kdfThreads, 32)
	return &TokenCipher{key: key, signingKey: signingKey}, nil
}

func (c *TokenCipher) Seal(sessionID, token string) (string, error) {
	return Encrypt(token, c.key, []byte(sessionID))
}

func (c *TokenCipher) Open(sessionID, sealed string) (string, error) {
	return Decrypt(sealed, c.key, []byte(sessionID))
}

// SigningKey is the HMAC key for session cookies, derived from the same
// secret but separated from the encryption key.
func (c *TokenCipher) SigningKey() []byte {
	return c.signingKey
}

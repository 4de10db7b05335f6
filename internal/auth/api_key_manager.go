package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// APIKeyPrefix marks every platform API key: pgd_<64 hex chars>.
const APIKeyPrefix = "pgd_"

const apiKeyHexLen = 64

// APIKeyManager handles API key generation, hashing, and format validation
type APIKeyManager struct{}

// NewAPIKeyManager creates a new APIKeyManager
func NewAPIKeyManager() *APIKeyManager {
	return &APIKeyManager{}
}

// GenerateAPIKey generates a new key. Returns the plaintext (shown once) and
// the SHA-256 hash that gets stored.
func (m *APIKeyManager) GenerateAPIKey() (plainKey, hash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	plainKey = APIKeyPrefix + hex.EncodeToString(randomBytes)
	hashBytes := sha256.Sum256([]byte(plainKey))
	return plainKey, hex.EncodeToString(hashBytes[:]), nil
}

// ValidateAndHashAPIKey rejects malformed keys and returns the lookup hash
// for well-formed ones. A malformed key can never match a stored hash, so
// callers treat a format error the same as an unknown key.
func (m *APIKeyManager) ValidateAndHashAPIKey(plainKey string) (string, error) {
	if !strings.HasPrefix(plainKey, APIKeyPrefix) {
		return "", errors.New("invalid API key format: missing prefix")
	}
	if len(plainKey) != len(APIKeyPrefix)+apiKeyHexLen {
		return "", fmt.Errorf("invalid API key format: expected %d chars, got %d",
			len(APIKeyPrefix)+apiKeyHexLen, len(plainKey))
	}
	hashBytes := sha256.Sum256([]byte(plainKey))
	return hex.EncodeToString(hashBytes[:]), nil
}

// DisplayPrefix returns the short key prefix safe to store and log, e.g.
// "pgd_3fa9c2".
func DisplayPrefix(plainKey string) string {
	const visible = len(APIKeyPrefix) + 6
	if len(plainKey) < visible {
		return plainKey
	}
	return plainKey[:visible]
}

// HashSecret returns the hex SHA-256 of an opaque secret (setup tokens,
// call join codes).
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

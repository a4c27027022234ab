package redis

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyTeamByEmail hashes the email so addresses never appear in key listings
func (kb *KeyBuilder) KeyTeamByEmail(email string) string {
	return kb.BuildKey(fmt.Sprintf(KeyTeamByEmail, hashPart(email)))
}

// KeyTeamByName hashes the team name so distinct names never share a key
func (kb *KeyBuilder) KeyTeamByName(teamName string) string {
	return kb.BuildKey(fmt.Sprintf(KeyTeamByName, hashPart(teamName)))
}

func (kb *KeyBuilder) KeyIdempotency(userID, key string) string {
	return kb.BuildKey(fmt.Sprintf(KeyIdempotency, userID, hashPart(key)))
}

func hashPart(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

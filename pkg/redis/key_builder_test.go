package redis

import (
	"strings"
	"testing"
)

func TestKeyBuilder_Environment_Prefixes(t *testing.T) {
	tests := []struct {
		name           string
		environment    string
		expectedPrefix string
	}{
		{
			name:           "Production environment should use prod prefix",
			environment:    "production",
			expectedPrefix: "prod",
		},
		{
			name:           "Development environment should use staging prefix",
			environment:    "development",
			expectedPrefix: "staging",
		},
		{
			name:           "Staging environment should use staging prefix",
			environment:    "staging",
			expectedPrefix: "staging",
		},
		{
			name:           "Unknown environment should default to prod prefix",
			environment:    "unknown",
			expectedPrefix: "prod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.environment)
			if kb.GetPrefix() != tt.expectedPrefix {
				t.Errorf("NewKeyBuilder(%s).GetPrefix() = %s, want %s",
					tt.environment, kb.GetPrefix(), tt.expectedPrefix)
			}
		})
	}
}

func TestKeyBuilder_KeyGeneration(t *testing.T) {
	kb := NewKeyBuilder("production")

	nameKey := kb.KeyTeamByName("Code Ninjas")
	if !strings.HasPrefix(nameKey, "prod:team:name:") {
		t.Errorf("KeyTeamByName() = %s, want prod:team:name: prefix", nameKey)
	}
	if nameKey != kb.KeyTeamByName("Code Ninjas") {
		t.Error("KeyTeamByName() must be deterministic")
	}
	for _, other := range []string{"Code_Ninjas", "code ninjas", "Code  Ninjas"} {
		if nameKey == kb.KeyTeamByName(other) {
			t.Errorf("KeyTeamByName(%q) collides with KeyTeamByName(%q)", other, "Code Ninjas")
		}
	}

	emailKey := kb.KeyTeamByEmail("parent@example.com")
	if !strings.HasPrefix(emailKey, "prod:team:email:") {
		t.Errorf("KeyTeamByEmail() = %s, want prod:team:email: prefix", emailKey)
	}
	if strings.Contains(emailKey, "parent@example.com") {
		t.Errorf("KeyTeamByEmail() leaks the address: %s", emailKey)
	}
	if emailKey != kb.KeyTeamByEmail("parent@example.com") {
		t.Error("KeyTeamByEmail() must be deterministic")
	}
	if emailKey == kb.KeyTeamByEmail("Parent@example.com") {
		t.Error("KeyTeamByEmail() must stay case-sensitive")
	}

	idem := kb.KeyIdempotency("user-1", "abc")
	if !strings.HasPrefix(idem, "prod:submit:idem:user-1:") {
		t.Errorf("KeyIdempotency() = %s", idem)
	}
	if idem == kb.KeyIdempotency("user-2", "abc") {
		t.Error("KeyIdempotency() must be scoped per user")
	}
}

func TestKeyBuilder_EnvironmentIsolation(t *testing.T) {
	prod := NewKeyBuilder("production")
	staging := NewKeyBuilder("staging")

	if prod.KeyTeamByName("Alpha") == staging.KeyTeamByName("Alpha") {
		t.Error("keys from different environments must not collide")
	}
}

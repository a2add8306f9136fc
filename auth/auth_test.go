// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewID(t *testing.T) {
	id := NewID()

	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("NewID() produced invalid UUID %q: %v", id, err)
	}

	// Test randomness - two IDs should be different
	if NewID() == NewID() {
		t.Error("NewID() produced duplicate IDs (extremely unlikely)")
	}
}

func TestGenerateAdminKey(t *testing.T) {
	tests := []struct {
		name    string
		eventID string
		salt    string
	}{
		{"standard", "event123", "secret-salt"},
		{"empty event id", "", "salt"},
		{"empty salt", "event456", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := GenerateAdminKey(tt.eventID, tt.salt)

			// Should not be empty
			if key == "" {
				t.Error("GenerateAdminKey() returned empty string")
			}

			// Should be deterministic
			key2 := GenerateAdminKey(tt.eventID, tt.salt)
			if key != key2 {
				t.Error("GenerateAdminKey() is not deterministic")
			}

			// Different inputs should produce different keys
			if tt.eventID != "" && tt.salt != "" {
				differentKey := GenerateAdminKey(tt.eventID+"x", tt.salt)
				if key == differentKey {
					t.Error("GenerateAdminKey() produced same key for different event IDs")
				}
			}

			// Should be URL-safe (no padding)
			if strings.Contains(key, "=") {
				t.Error("GenerateAdminKey() contains padding characters")
			}
		})
	}
}

func TestValidateAdminKey(t *testing.T) {
	eventID := "test-event-123"
	salt := "test-salt"
	validKey := GenerateAdminKey(eventID, salt)

	tests := []struct {
		name     string
		eventID  string
		adminKey string
		salt     string
		wantErr  bool
	}{
		{"valid key", eventID, validKey, salt, false},
		{"wrong key", eventID, "wrong-key", salt, true},
		{"wrong event id", "different-event", validKey, salt, true},
		{"wrong salt", eventID, validKey, "different-salt", true},
		{"empty key", eventID, "", salt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.eventID, tt.adminKey, tt.salt)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAdminKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != ErrInvalidAdminKey {
				t.Errorf("ValidateAdminKey() error = %v, want %v", err, ErrInvalidAdminKey)
			}
		})
	}
}

func BenchmarkGenerateAdminKey(b *testing.B) {
	eventID := "test-event-123"
	salt := "test-salt"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GenerateAdminKey(eventID, salt)
	}
}

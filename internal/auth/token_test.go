package auth

import (
	"strings"
	"testing"

	"github.com/spec-kit/ticketflow/internal/domain"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	tok, err := tm.GenerateToken("actor-1", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := tm.ParseToken(tok.Value)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.ActorID != "actor-1" {
		t.Errorf("ActorID = %q, want %q", claims.ActorID, "actor-1")
	}
	if claims.Role != domain.RoleAdmin {
		t.Errorf("Role = %q, want %q", claims.Role, domain.RoleAdmin)
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	tok, err := NewTokenManager("one", 5).GenerateToken("actor-1", domain.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if _, err := NewTokenManager("two", 5).ParseToken(tok.Value); err == nil {
		t.Fatal("ParseToken() with wrong secret = nil error")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := ComparePassword(hash, "hunter22"); err != nil {
		t.Errorf("ComparePassword(match) = %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Error("ComparePassword(mismatch) = nil")
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"short", "seven77", true},
		{"minimum", "eight888", false},
		{"bcrypt limit", strings.Repeat("a", MaxPasswordLength), false},
		{"over bcrypt limit", strings.Repeat("a", MaxPasswordLength+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPasswordPolicy(tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckPasswordPolicy() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.Is(err, apperrors.CodeValidation) {
				t.Fatalf("CheckPasswordPolicy() code = %v, want VALIDATION_FAILED", err)
			}
		})
	}
}

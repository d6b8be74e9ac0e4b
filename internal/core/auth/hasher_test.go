package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestNewHasher_Cost(t *testing.T) {
	tests := []struct {
		name    string
		cost    int
		wantErr bool
	}{
		{"default", 0, false},
		{"minimum", bcrypt.MinCost, false},
		{"too low", 2, true},
		{"too high", bcrypt.MaxCost + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHasher(tt.cost)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewHasher(%d) err = %v, wantErr %v", tt.cost, err, tt.wantErr)
			}
		})
	}
}

func TestHasher_HashAndVerify(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	first, err := h.Hash("pass123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	second, _ := h.Hash("pass123")

	if first == "pass123" || !strings.HasPrefix(first, "$2") {
		t.Fatalf("unexpected hash format %q", first)
	}
	if first == second {
		t.Error("expected salted hashes to differ")
	}
	if !h.Verify("pass123", first) || !h.Verify("pass123", second) {
		t.Error("expected the secret to verify against both hashes")
	}
	if h.Verify("pass124", first) {
		t.Error("wrong secret must not verify")
	}
	if h.Verify("pass123", "not-a-hash") {
		t.Error("garbage hash must not verify")
	}
}

func TestHasher_RejectsOverlongSecret(t *testing.T) {
	h, _ := NewHasher(bcrypt.MinCost)
	if _, err := h.Hash(strings.Repeat("x", 73)); err == nil {
		t.Fatal("expected error for a secret over 72 bytes")
	}
}

func TestHasher_BurnUsesConfiguredCost(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost + 1)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	h.Burn("anything")
	h.Burn("anything else")

	cost, err := bcrypt.Cost(h.decoy)
	if err != nil {
		t.Fatalf("decoy hash: %v", err)
	}
	if cost != bcrypt.MinCost+1 {
		t.Fatalf("decoy cost = %d, want %d", cost, bcrypt.MinCost+1)
	}
}

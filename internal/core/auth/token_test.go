package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eventbooker/event-booker/internal/core/domain"
)

var testUser = &domain.User{ID: "u-1", Email: "alice@example.com", Username: "alice", Role: domain.RoleUser}

func newCodec(t *testing.T, cfg TokenConfig, opts ...CodecOption) *TokenCodec {
	t.Helper()
	if cfg.Secret == nil {
		cfg.Secret = []byte("test-secret")
	}
	c, err := NewTokenCodec(cfg, opts...)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return c
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestNewTokenCodec_RequiresSecret(t *testing.T) {
	if _, err := NewTokenCodec(TokenConfig{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestNewTokenCodec_Defaults(t *testing.T) {
	c := newCodec(t, TokenConfig{})
	if c.TTL() != DefaultTokenTTL {
		t.Fatalf("TTL = %v, want %v", c.TTL(), DefaultTokenTTL)
	}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	c := newCodec(t, TokenConfig{TTL: time.Hour}, WithClock(fixedClock(now)))

	token, err := c.Issue(ClaimsFor(testUser))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := c.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if claims.ID != "u-1" || claims.Email != "alice@example.com" || claims.Username != "alice" || claims.Role != domain.RoleUser {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Subject != "u-1" || claims.Issuer != DefaultIssuer {
		t.Fatalf("unexpected registered claims %+v", claims.RegisteredClaims)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(time.Hour)) {
		t.Fatalf("exp = %v, want %v", claims.ExpiresAt.Time, now.Add(time.Hour))
	}
}

func TestTokenCodec_SecretIsCopied(t *testing.T) {
	secret := []byte("mutable-secret")
	c := newCodec(t, TokenConfig{Secret: secret})
	token, _ := c.Issue(ClaimsFor(testUser))

	secret[0] = 'X'
	if _, err := c.Verify(token); err != nil {
		t.Fatalf("mutating the caller's slice must not affect the codec: %v", err)
	}
}

func TestTokenCodec_Rejections(t *testing.T) {
	issuedAt := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	issuer := newCodec(t, TokenConfig{TTL: time.Hour}, WithClock(fixedClock(issuedAt)))
	token, err := issuer.Issue(ClaimsFor(testUser))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name     string
		verifier *TokenCodec
		token    string
		want     error
	}{
		{
			name:     "expired",
			verifier: newCodec(t, TokenConfig{}, WithClock(fixedClock(issuedAt.Add(2*time.Hour)))),
			token:    token,
			want:     ErrTokenExpired,
		},
		{
			name:     "not yet valid",
			verifier: newCodec(t, TokenConfig{}, WithClock(fixedClock(issuedAt.Add(-time.Hour)))),
			token:    token,
			want:     ErrTokenNotYetValid,
		},
		{
			name:     "wrong key",
			verifier: newCodec(t, TokenConfig{Secret: []byte("other-secret")}, WithClock(fixedClock(issuedAt))),
			token:    token,
			want:     ErrTokenInvalid,
		},
		{
			name:     "tampered payload",
			verifier: issuer,
			token:    tampered,
			want:     ErrTokenInvalid,
		},
		{
			name:     "malformed",
			verifier: issuer,
			token:    "not.a.jwt",
			want:     ErrTokenInvalid,
		},
		{
			name:     "issuer mismatch",
			verifier: newCodec(t, TokenConfig{Issuer: "someone-else"}, WithClock(fixedClock(issuedAt))),
			token:    token,
			want:     ErrTokenVerification,
		},
		{
			name:     "audience mismatch",
			verifier: newCodec(t, TokenConfig{Audience: "other-audience"}, WithClock(fixedClock(issuedAt))),
			token:    token,
			want:     ErrTokenVerification,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.Verify(tt.token)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Verify err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	c := newCodec(t, TokenConfig{}, WithClock(fixedClock(now)))

	claims := ClaimsFor(testUser)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    DefaultIssuer,
		Audience:  jwt.ClaimStrings{DefaultAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for HS512, got %v", err)
	}
}

func TestTokenCodec_RequiresExpiry(t *testing.T) {
	c := newCodec(t, TokenConfig{})
	claims := ClaimsFor(testUser)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:   DefaultIssuer,
		Audience: jwt.ClaimStrings{DefaultAudience},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))

	if _, err := c.Verify(token); err == nil {
		t.Fatal("expected a token without exp to be rejected")
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"Bearer ", "", false},
		{"bearer abc", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractBearer(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractBearer(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

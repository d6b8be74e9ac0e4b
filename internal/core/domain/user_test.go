package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestRegistration_NormalizeAndValidate(t *testing.T) {
	reg := Registration{
		Username:  "  alice ",
		Email:     " Alice@Example.COM ",
		Password:  "pass12",
		FirstName: " Alice ",
		LastName:  "Liddell",
	}
	reg.Normalize()

	if reg.Username != "alice" || reg.Email != "alice@example.com" || reg.FirstName != "Alice" {
		t.Fatalf("not normalized: %+v", reg)
	}
	if reg.Role != RoleUser {
		t.Fatalf("default role = %q, want user", reg.Role)
	}
	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRegistration_Boundaries(t *testing.T) {
	base := func() Registration {
		return Registration{Username: "abc", Email: "a@b.co", Password: "123456", FirstName: "A", LastName: "B", Role: RoleUser}
	}
	tests := []struct {
		name   string
		mutate func(r *Registration)
		field  string
	}{
		{"minimums", func(*Registration) {}, ""},
		{"username too short", func(r *Registration) { r.Username = "ab" }, "username"},
		{"username at max", func(r *Registration) { r.Username = strings.Repeat("u", 30) }, ""},
		{"username too long", func(r *Registration) { r.Username = strings.Repeat("u", 31) }, "username"},
		{"password too short", func(r *Registration) { r.Password = "12345" }, "password"},
		{"password at bcrypt limit", func(r *Registration) { r.Password = strings.Repeat("p", 72) }, ""},
		{"password over bcrypt limit", func(r *Registration) { r.Password = strings.Repeat("p", 73) }, "password"},
		{"bad email", func(r *Registration) { r.Email = "not-an-email" }, "email"},
		{"missing last name", func(r *Registration) { r.LastName = "" }, "lastName"},
		{"long first name", func(r *Registration) { r.FirstName = strings.Repeat("f", 51) }, "firstName"},
		{"unknown role", func(r *Registration) { r.Role = "root" }, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base()
			tt.mutate(&r)
			err := r.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || len(ve.Violations) != 1 || ve.Violations[0].Field != tt.field {
				t.Fatalf("expected a single %s violation, got %v", tt.field, err)
			}
		})
	}
}

func TestProfileUpdate_Validate(t *testing.T) {
	if err := (ProfileUpdate{}).Validate(); err != nil {
		t.Fatalf("empty update must be valid: %v", err)
	}
	blank := "   "
	if err := (ProfileUpdate{FirstName: &blank}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
}

func TestUser_IdentityOmitsSecrets(t *testing.T) {
	u := &User{ID: "u-1", Username: "alice", PasswordHash: "hash", Role: RoleAdmin, IsActive: true}
	id := u.Identity()
	if id.ID != "u-1" || !id.IsAdmin() || !id.IsActive {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrUserNotFound, ErrNotFound},
		{ErrAccountInactive, ErrUnauthenticated},
		{ErrInvalidCredentials, ErrUnauthenticated},
		{ErrUserExists, ErrConflict},
		{ErrEventInactive, ErrConflict},
		{ErrBookingCancelled, ErrConflict},
		{Transient("op", errors.New("x")), ErrTransientStore},
		{&ValidationError{}, ErrValidation},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.kind) {
			t.Errorf("%v does not match kind %v", tt.err, tt.kind)
		}
	}
}

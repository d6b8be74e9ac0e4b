package domain

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Role is the authorization role carried by a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User models an account. PasswordHash never leaves the repository and
// resolver layers.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	IsActive     bool       `json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Identity is the per-request view of an authenticated user, rebuilt from the
// stored record on every authentication.
type Identity struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
	IsActive  bool   `json:"isActive"`
}

// IsAdmin reports whether the identity bypasses ownership checks.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Identity returns the identity snapshot of u.
func (u *User) Identity() Identity {
	return Identity{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		IsActive:  u.IsActive,
	}
}

// NormalizeEmail trims and lower-cases an address so uniqueness is checked on
// one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Registration is the plaintext input to account creation.
type Registration struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      Role
}

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt input limit
	maxNameLen     = 50
)

// Normalize trims text fields, canonicalizes the email and applies the
// default role.
func (r *Registration) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.Role == "" {
		r.Role = RoleUser
	}
}

// Validate checks a normalized registration.
func (r Registration) Validate() error {
	var vs violations
	switch n := utf8.RuneCountInString(r.Username); {
	case n == 0:
		vs.add("username", "is required")
	case n < minUsernameLen || n > maxUsernameLen:
		vs.add("username", "must be between 3 and 30 characters")
	}
	if r.Email == "" {
		vs.add("email", "is required")
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		vs.add("email", "must be a valid email address")
	}
	validatePassword(&vs, r.Password)
	validateName(&vs, "firstName", r.FirstName)
	validateName(&vs, "lastName", r.LastName)
	if !r.Role.Valid() {
		vs.add("role", "must be one of: user admin")
	}
	return vs.err()
}

// ProfileUpdate carries the optional fields of a profile change. Nil means
// unchanged.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Password  *string
}

// Validate checks the fields that are present.
func (p ProfileUpdate) Validate() error {
	var vs violations
	if p.FirstName != nil {
		validateName(&vs, "firstName", strings.TrimSpace(*p.FirstName))
	}
	if p.LastName != nil {
		validateName(&vs, "lastName", strings.TrimSpace(*p.LastName))
	}
	if p.Password != nil {
		validatePassword(&vs, *p.Password)
	}
	return vs.err()
}

func validatePassword(vs *violations, password string) {
	switch {
	case password == "":
		vs.add("password", "is required")
	case len(password) < minPasswordLen:
		vs.add("password", "must be at least 6 characters")
	case len(password) > maxPasswordLen:
		vs.add("password", "must be at most 72 bytes")
	}
}

func validateName(vs *violations, field, name string) {
	switch {
	case name == "":
		vs.add(field, "is required")
	case utf8.RuneCountInString(name) > maxNameLen:
		vs.add(field, "must be at most 50 characters")
	}
}

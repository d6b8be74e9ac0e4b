package ports

import (
	"context"
	"time"

	"github.com/eventbooker/event-booker/internal/core/domain"
)

// UserPatch names the account fields a single write changes. Nil fields are
// left as stored.
type UserPatch struct {
	FirstName    *string
	LastName     *string
	PasswordHash *string
	Role         *domain.Role
	IsActive     *bool
	UpdatedAt    time.Time
}

// UserRepository persists accounts. Implementations return
// domain.ErrUserNotFound for missing records and domain.ErrUserExists on a
// username or email collision.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Patch writes only the fields set in patch and returns the stored record.
	Patch(ctx context.Context, id string, patch UserPatch) (*domain.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

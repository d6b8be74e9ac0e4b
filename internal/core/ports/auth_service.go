package ports

import (
	"context"

	"github.com/eventbooker/event-booker/internal/core/domain"
)

// AuthService covers account registration, login and administration.
type AuthService interface {
	Register(ctx context.Context, reg domain.Registration) (*domain.User, error)
	// Login returns a signed token for valid credentials. Unknown email, wrong
	// password and inactive accounts all fail with domain.ErrInvalidCredentials.
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error)
	ChangeRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
	SetActive(ctx context.Context, id string, active bool) (*domain.User, error)
}

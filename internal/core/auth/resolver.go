package auth

import (
	"context"
	"fmt"

	"github.com/eventbooker/event-booker/internal/core/domain"
	"github.com/eventbooker/event-booker/internal/core/ports"
)

// Resolver turns verified claims into the live identity of a user.
type Resolver struct {
	users ports.UserRepository
}

// NewResolver returns a Resolver reading from users.
func NewResolver(users ports.UserRepository) *Resolver {
	return &Resolver{users: users}
}

// Resolve loads the user named by claims. The stored role and status win
// over whatever the token carries.
func (r *Resolver) Resolve(ctx context.Context, claims *Claims) (domain.Identity, error) {
	user, err := r.users.FindByID(ctx, claims.ID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}
	if !user.IsActive {
		return domain.Identity{}, domain.ErrAccountInactive
	}
	return user.Identity(), nil
}

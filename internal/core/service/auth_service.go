package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eventbooker/event-booker/internal/core/auth"
	"github.com/eventbooker/event-booker/internal/core/domain"
	"github.com/eventbooker/event-booker/internal/core/ports"
)

// AuthService implements registration, login and account administration.
type AuthService struct {
	repo   ports.UserRepository
	hasher *auth.Hasher
	codec  *auth.TokenCodec
	log    zerolog.Logger
	now    func() time.Time
}

func NewAuthService(repo ports.UserRepository, hasher *auth.Hasher, codec *auth.TokenCodec, log zerolog.Logger) *AuthService {
	return &AuthService{repo: repo, hasher: hasher, codec: codec, log: log, now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	reg.Normalize()
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		Role:         reg.Role,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Msg("user registered")
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Burn(password)
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.log.Info().Str("user_id", user.ID).Msg("login refused for inactive account")
		return "", nil, domain.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	} else {
		user.LastLogin = &now
	}

	token, err := s.codec.Issue(auth.ClaimsFor(user))
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile applies name changes and, when the password differs from the
// stored one, re-hashes it. Role and status are never written here.
func (s *AuthService) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	patch := ports.UserPatch{}
	if update.FirstName != nil {
		name := strings.TrimSpace(*update.FirstName)
		patch.FirstName = &name
	}
	if update.LastName != nil {
		name := strings.TrimSpace(*update.LastName)
		patch.LastName = &name
	}
	if update.Password != nil {
		user, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !s.hasher.Verify(*update.Password, user.PasswordHash) {
			hash, err := s.hasher.Hash(*update.Password)
			if err != nil {
				return nil, err
			}
			patch.PasswordHash = &hash
		}
	}

	return s.patch(ctx, id, patch)
}

func (s *AuthService) ChangeRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, &domain.ValidationError{Violations: []domain.Violation{{Field: "role", Message: "must be one of: user admin"}}}
	}
	updated, err := s.patch(ctx, id, ports.UserPatch{Role: &role})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", id).Str("role", string(role)).Msg("user role changed")
	return updated, nil
}

// SetActive soft-(de)activates an account. Tokens already issued to a
// deactivated user stop resolving on their next use.
func (s *AuthService) SetActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	updated, err := s.patch(ctx, id, ports.UserPatch{IsActive: &active})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", id).Bool("active", active).Msg("user status changed")
	return updated, nil
}

func (s *AuthService) patch(ctx context.Context, id string, patch ports.UserPatch) (*domain.User, error) {
	patch.UpdatedAt = s.now().UTC()
	updated, err := s.repo.Patch(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

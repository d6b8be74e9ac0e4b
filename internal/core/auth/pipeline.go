package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/eventbooker/event-booker/internal/core/domain"
)

// ErrNoCredentials means neither carrier held a token.
var ErrNoCredentials = errors.New("no credentials presented")

// Carrier holds the transport values a token may arrive in.
type Carrier struct {
	Header string // raw Authorization header value
	Cookie string // auth cookie value
}

// State is threaded through the pipeline by value. Stages return a new State
// instead of mutating the one they received.
type State struct {
	Carrier  Carrier
	Token    string
	Claims   *Claims
	Identity *domain.Identity
}

// Stage is one step of the access decision. A non-nil error stops the
// pipeline and is the rejection.
type Stage func(ctx context.Context, st State) (State, error)

// Observer is told about every decision the pipeline reaches. err is nil on
// success.
type Observer func(decision string, err error)

// Pipeline runs the authenticate, authorize-by-role and
// authorize-by-ownership stages.
type Pipeline struct {
	codec    *TokenCodec
	resolver *Resolver
	log      zerolog.Logger
	observe  Observer
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithObserver registers a decision observer (metrics).
func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) { p.observe = o }
}

// NewPipeline wires the codec and resolver into a Pipeline.
func NewPipeline(codec *TokenCodec, resolver *Resolver, log zerolog.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		codec:    codec,
		resolver: resolver,
		log:      log,
		observe:  func(string, error) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run feeds a fresh State for carrier through stages in order and stops at
// the first rejection.
func (p *Pipeline) Run(ctx context.Context, carrier Carrier, stages ...Stage) (State, error) {
	st := State{Carrier: carrier}
	for _, stage := range stages {
		next, err := stage(ctx, st)
		if err != nil {
			return st, err
		}
		st = next
	}
	return st, nil
}

// Authenticate locates, verifies and resolves the caller, then checks roles.
// An empty roles list admits any authenticated user.
func (p *Pipeline) Authenticate(ctx context.Context, carrier Carrier, roles ...domain.Role) (domain.Identity, error) {
	st, err := p.Run(ctx, carrier, p.locate, p.verify, p.resolve, RequireRoles(roles...))
	if err != nil {
		p.reject("authenticate", err)
		return domain.Identity{}, err
	}
	p.observe("authenticate", nil)
	return *st.Identity, nil
}

// Optional runs the authentication stages but never rejects: any failure
// yields no identity, exactly as if no credentials were sent.
func (p *Pipeline) Optional(ctx context.Context, carrier Carrier) (domain.Identity, bool) {
	st, err := p.Run(ctx, carrier, p.locate, p.verify, p.resolve)
	if err != nil {
		if !errors.Is(err, ErrNoCredentials) {
			p.log.Debug().Str("reason", Reason(err)).Err(err).Msg("optional authentication ignored")
		}
		return domain.Identity{}, false
	}
	return *st.Identity, true
}

// Authorize checks an already resolved identity against roles.
func (p *Pipeline) Authorize(identity domain.Identity, roles ...domain.Role) error {
	_, err := RequireRoles(roles...)(context.Background(), State{Identity: &identity})
	if err != nil {
		p.reject("authorize", err)
	}
	return err
}

// AuthorizeOwnership admits admins and the owner of the resource.
func (p *Pipeline) AuthorizeOwnership(identity domain.Identity, ownerID string) error {
	_, err := RequireOwner(ownerID)(context.Background(), State{Identity: &identity})
	if err != nil {
		p.reject("ownership", err)
		return err
	}
	p.observe("ownership", nil)
	return nil
}

func (p *Pipeline) reject(decision string, err error) {
	p.observe(decision, err)
	p.log.Debug().Str("decision", decision).Str("reason", Reason(err)).Err(err).Msg("access rejected")
}

func (p *Pipeline) locate(_ context.Context, st State) (State, error) {
	if token, ok := ExtractBearer(st.Carrier.Header); ok {
		st.Token = token
		return st, nil
	}
	if st.Carrier.Cookie != "" {
		st.Token = st.Carrier.Cookie
		return st, nil
	}
	return st, unauthenticated(ErrNoCredentials)
}

func (p *Pipeline) verify(_ context.Context, st State) (State, error) {
	claims, err := p.codec.Verify(st.Token)
	if err != nil {
		return st, unauthenticated(err)
	}
	st.Claims = claims
	return st, nil
}

func (p *Pipeline) resolve(ctx context.Context, st State) (State, error) {
	identity, err := p.resolver.Resolve(ctx, st.Claims)
	if err != nil {
		if errors.Is(err, domain.ErrTransientStore) {
			return st, err
		}
		return st, unauthenticated(err)
	}
	st.Identity = &identity
	return st, nil
}

// RequireRoles rejects identities whose role is not in roles. No roles means
// any authenticated identity passes.
func RequireRoles(roles ...domain.Role) Stage {
	return func(_ context.Context, st State) (State, error) {
		if st.Identity == nil {
			return st, unauthenticated(ErrNoCredentials)
		}
		if len(roles) == 0 {
			return st, nil
		}
		for _, r := range roles {
			if st.Identity.Role == r {
				return st, nil
			}
		}
		return st, fmt.Errorf("%w: requires one of roles %v", domain.ErrForbidden, roles)
	}
}

// RequireOwner rejects non-admin identities that do not own the resource.
func RequireOwner(ownerID string) Stage {
	return func(_ context.Context, st State) (State, error) {
		if st.Identity == nil {
			return st, unauthenticated(ErrNoCredentials)
		}
		if st.Identity.IsAdmin() {
			return st, nil
		}
		if ownerID == "" || st.Identity.ID != ownerID {
			return st, fmt.Errorf("%w: only the owner can access this resource", domain.ErrForbidden)
		}
		return st, nil
	}
}

func unauthenticated(cause error) error {
	return fmt.Errorf("%w: %w", domain.ErrUnauthenticated, cause)
}

// Reason returns a short label for a rejection, used in logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoCredentials):
		return "no_credentials"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenNotYetValid):
		return "token_not_yet_valid"
	case errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, ErrTokenVerification):
		return "token_verification"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrAccountInactive):
		return "account_inactive"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrTransientStore):
		return "store_unavailable"
	default:
		return "other"
	}
}

// Package guard decides whether a protected view may be shown.
package guard

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sorynturda/link-sharing/internal/api"
	"github.com/sorynturda/link-sharing/internal/session"
	"github.com/sorynturda/link-sharing/types"
)

// State is the position of a Guard in its check.
type State int

const (
	Verifying State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Reasons attached to an Unauthenticated result.
const (
	ReasonMissing     = "missing"
	ReasonExpired     = "expired"
	ReasonRejected    = "rejected"
	ReasonUnreachable = "unreachable"
	ReasonMalformed   = "malformed"
)

// Verifier round-trips a token against the backend. *api.Client satisfies it.
type Verifier interface {
	Verify(ctx context.Context) error
}

// Result is the outcome of one Check.
type Result struct {
	State  State
	Reason string
	Claims types.Claims
	// Err is the verification failure, if any.
	Err error
}

// Guard performs the one-shot check that precedes a protected view. It
// holds no state between checks.
type Guard struct {
	holder   *session.Holder
	verifier Verifier
	now      func() time.Time
	logger   zerolog.Logger
	// verifying runs once the backend round trip is about to start.
	verifying func()
}

type Option func(*Guard)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// OnVerifying registers fn to run when the check enters Verifying with a
// token that has to be confirmed by the backend.
func OnVerifying(fn func()) Option {
	return func(g *Guard) { g.verifying = fn }
}

// New constructs a Guard. A nil verifier skips the backend round trip.
func New(holder *session.Holder, verifier Verifier, opts ...Option) *Guard {
	g := &Guard{
		holder:   holder,
		verifier: verifier,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check runs Verifying -> Authenticated | Unauthenticated. Expired,
// undecodable or rejected tokens are cleared from the holder.
func (g *Guard) Check(ctx context.Context) Result {
	token, ok := g.holder.Get()
	if !ok {
		return Result{State: Unauthenticated, Reason: ReasonMissing}
	}

	// Views address files by the user id in the claims.
	claims, ok := session.DecodeClaims(token)
	if !ok {
		g.clear()
		return Result{State: Unauthenticated, Reason: ReasonMalformed}
	}
	if session.IsExpired(claims, g.now()) {
		g.clear()
		return Result{State: Unauthenticated, Reason: ReasonExpired, Claims: claims}
	}

	if g.verifier == nil {
		return Result{State: Authenticated, Claims: claims}
	}

	if g.verifying != nil {
		g.verifying()
	}
	if err := g.verifier.Verify(ctx); err != nil {
		reason := ReasonRejected
		if errors.Is(err, api.ErrNetwork) {
			reason = ReasonUnreachable
		}
		g.logger.Warn().Err(err).Str("reason", reason).Msg("session verification failed")
		g.clear()
		return Result{State: Unauthenticated, Reason: reason, Claims: claims, Err: err}
	}
	return Result{State: Authenticated, Claims: claims}
}

// HasRole reports whether an authenticated result carries role. This only
// decides what the client shows; the backend enforces access.
func HasRole(result Result, role string) bool {
	return result.State == Authenticated && result.Claims.Role == role
}

func (g *Guard) clear() {
	if err := g.holder.Clear(); err != nil {
		g.logger.Error().Err(err).Msg("clear session token")
	}
}

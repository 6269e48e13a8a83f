// Package auth resolves caller credentials to user identities via an
// OpenID Connect provider.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/finlight/appraise/pkg/lifecycle"
)

// System defines the public contract for authentication.
type System interface {
	// Start registers a startup hook that performs OIDC provider discovery.
	Start(lc *lifecycle.Coordinator) error
	// Authenticate verifies a raw bearer token and returns the subject identity.
	// Returns ErrUnauthorized for missing, malformed, or invalid tokens.
	Authenticate(ctx context.Context, rawToken string) (string, error)
}

type system struct {
	cfg    *Config
	logger *slog.Logger

	mu       sync.RWMutex
	verifier *oidc.IDTokenVerifier
}

// New creates an authentication system from the given configuration.
// Provider discovery is deferred until Start.
func New(cfg *Config, logger *slog.Logger) System {
	return &system{
		cfg:    cfg,
		logger: logger.With("system", "auth"),
	}
}

func (s *system) Start(lc *lifecycle.Coordinator) error {
	s.logger.Info("starting auth system", "issuer", s.cfg.Issuer)

	lc.OnStartup(func() {
		provider, err := oidc.NewProvider(lc.Context(), s.cfg.Issuer)
		if err != nil {
			s.logger.Error("oidc provider discovery failed", "error", err)
			return
		}

		s.mu.Lock()
		s.verifier = provider.Verifier(&oidc.Config{ClientID: s.cfg.Audience})
		s.mu.Unlock()

		s.logger.Info("oidc provider ready")
	})

	return nil
}

func (s *system) Authenticate(ctx context.Context, rawToken string) (string, error) {
	if rawToken == "" {
		return "", ErrUnauthorized
	}

	s.mu.RLock()
	verifier := s.verifier
	s.mu.RUnlock()

	if verifier == nil {
		return "", ErrNotReady
	}

	token, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	return token.Subject, nil
}

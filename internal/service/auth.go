package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sayless/sayless/internal/model"
	"github.com/sayless/sayless/internal/shortid"
	"github.com/sayless/sayless/internal/store"
)

// TokenService is the token authority: it validates bearer credentials
// against stored tokens, issues new tokens, and revokes existing ones.
type TokenService struct {
	store       *store.Store
	masterToken string
	logger      *slog.Logger
}

// NewTokenService creates a TokenService. masterToken is the out-of-band
// secret that satisfies every permission check; it is never stored.
func NewTokenService(st *store.Store, masterToken string, logger *slog.Logger) *TokenService {
	return &TokenService{
		store:       st,
		masterToken: masterToken,
		logger:      logger,
	}
}

// CheckPermission validates a presented credential against a requested
// capability set.
//
// Outcomes, in order: the master token passes unconditionally; a
// missing, unknown, or expired token fails with ErrUnauthorized; a
// live token lacking the requested capabilities fails with
// ErrForbidden. Existence and expiry are checked before flag matching
// so an expired token reports as unauthenticated rather than
// under-permissioned.
func (s *TokenService) CheckPermission(ctx context.Context, presented string, requested model.Permissions) error {
	if presented == "" {
		return ErrUnauthorized
	}
	if s.masterToken != "" && presented == s.masterToken {
		return nil
	}

	tok, err := s.store.GetToken(ctx, presented)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnauthorized
		}
		s.logger.Error("token lookup failed", "error", err)
		return fmt.Errorf("check permission: %w", err)
	}

	if tok.Expired(time.Now().UTC()) {
		return ErrUnauthorized
	}
	if !tok.Permissions().Satisfies(requested) {
		return ErrForbidden
	}
	return nil
}

// Issue generates and persists a new token with the given permission
// flags. When expiresAt is nil the token is valid for one year. The
// returned value is the only copy of the secret; it is shown once.
func (s *TokenService) Issue(ctx context.Context, flags model.PermissionFlags, expiresAt *time.Time) (string, error) {
	value, err := shortid.New(shortid.TokenLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	now := time.Now().UTC()
	exp := now.AddDate(1, 0, 0)
	if expiresAt != nil {
		exp = expiresAt.UTC()
	}

	tok := &model.Token{
		Value:           value,
		CreatedAt:       now,
		ExpiresAt:       exp,
		PermissionFlags: flags,
	}
	if err := s.store.InsertToken(ctx, tok); err != nil {
		s.logger.Error("token insert failed", "error", err)
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("token issued",
		"admin", flags.Admin,
		"create_link", flags.CreateLink,
		"create_token", flags.CreateToken,
		"view_ips", flags.ViewIPs,
		"expires_at", exp,
	)
	return value, nil
}

// Revoke expires the target token immediately. A caller may revoke the
// exact token it presents, or any token when it satisfies admin.
// Revoking a token that does not exist is a no-op, matching the
// soft-delete semantics: the observable state is the same either way.
func (s *TokenService) Revoke(ctx context.Context, presented, target string) error {
	if presented != target {
		if err := s.CheckPermission(ctx, presented, model.PermAdmin); err != nil {
			return err
		}
	}

	if _, err := s.store.ExpireToken(ctx, target, time.Now().UTC()); err != nil {
		s.logger.Error("token revocation failed", "error", err)
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("token revoked")
	return nil
}

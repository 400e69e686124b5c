package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/sayless/sayless/internal/store"
)

// StrikeService is the abuse ledger: a per-origin strike counter
// consulted before link creation. The pipeline only reads it; writes
// come from the administrative report surface (HTTP endpoint and CLI),
// since strike accumulation is an operator or moderation-process
// decision, never automatic.
type StrikeService struct {
	store      *store.Store
	maxStrikes uint16
	logger     *slog.Logger
}

// NewStrikeService creates a StrikeService denying origins at or above
// maxStrikes.
func NewStrikeService(st *store.Store, maxStrikes uint16, logger *slog.Logger) *StrikeService {
	return &StrikeService{
		store:      st,
		maxStrikes: maxStrikes,
		logger:     logger,
	}
}

// EncodeOrigin converts a network address into the opaque binary form
// used as the key of the strikes and origins tables.
func EncodeOrigin(addr netip.Addr) ([]byte, error) {
	b, err := addr.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode origin address: %w", err)
	}
	return b, nil
}

// DecodeOrigin is the inverse of EncodeOrigin.
func DecodeOrigin(b []byte) (netip.Addr, error) {
	var addr netip.Addr
	if err := addr.UnmarshalBinary(b); err != nil {
		return netip.Addr{}, fmt.Errorf("decode origin address: %w", err)
	}
	return addr, nil
}

// Check denies with ErrForbidden when the origin has reached the
// configured strike threshold. A missing row counts as zero strikes.
func (s *StrikeService) Check(ctx context.Context, origin []byte) error {
	amount, err := s.store.GetStrikes(ctx, origin)
	if err != nil {
		s.logger.Error("strike lookup failed", "error", err)
		return fmt.Errorf("check strikes: %w", err)
	}
	if amount >= s.maxStrikes {
		return ErrForbidden
	}
	return nil
}

// Amount returns the current strike count for an origin.
func (s *StrikeService) Amount(ctx context.Context, origin []byte) (uint16, error) {
	return s.store.GetStrikes(ctx, origin)
}

// Report raises the strike count for an origin by n and returns the
// new total.
func (s *StrikeService) Report(ctx context.Context, origin []byte, n uint16) (uint16, error) {
	total, err := s.store.AddStrikes(ctx, origin, n)
	if err != nil {
		s.logger.Error("strike report failed", "error", err)
		return 0, fmt.Errorf("report strikes: %w", err)
	}
	s.logger.Info("strikes reported", "amount", n, "total", total)
	return total, nil
}

// Clear removes all strikes for an origin.
func (s *StrikeService) Clear(ctx context.Context, origin []byte) error {
	if err := s.store.ClearStrikes(ctx, origin); err != nil {
		s.logger.Error("strike clear failed", "error", err)
		return fmt.Errorf("clear strikes: %w", err)
	}
	return nil
}

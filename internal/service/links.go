package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"net/url"
	"time"

	"github.com/sayless/sayless/internal/model"
	"github.com/sayless/sayless/internal/shortid"
	"github.com/sayless/sayless/internal/store"
)

// LinkService orchestrates link creation: authorization, the strike
// check, deduplication, and persistence, in that strict order. A later
// gate never runs when an earlier one rejects.
type LinkService struct {
	store        *store.Store
	tokens       *TokenService  // nil when the token subsystem is disabled
	strikes      *StrikeService // nil when origin recording is disabled
	requiresAuth bool
	recordIPs    bool
	logger       *slog.Logger
}

// NewLinkService wires the link creation pipeline. tokens may be nil
// when the token subsystem is disabled; strikes may be nil when origin
// recording is disabled.
func NewLinkService(st *store.Store, tokens *TokenService, strikes *StrikeService, requiresAuth, recordIPs bool, logger *slog.Logger) *LinkService {
	return &LinkService{
		store:        st,
		tokens:       tokens,
		strikes:      strikes,
		requiresAuth: requiresAuth,
		recordIPs:    recordIPs,
		logger:       logger,
	}
}

// Create shortens a URL. It returns the link and whether it already
// existed: a dedup hit returns the stored link with no writes at all.
//
// Gate order is fixed: credential check (when creation is token-gated),
// strike check (when origin recording is on), URL validation, then the
// fingerprint lookup and insert. The link row and its origin row commit
// in one transaction.
func (s *LinkService) Create(ctx context.Context, rawURL string, remote netip.Addr, presented string) (*model.Link, bool, error) {
	if s.requiresAuth {
		if err := s.tokens.CheckPermission(ctx, presented, model.PermCreateLink); err != nil {
			return nil, false, err
		}
	}

	var createdBy []byte
	if s.recordIPs {
		var err error
		createdBy, err = EncodeOrigin(remote)
		if err != nil {
			s.logger.Error("origin encoding failed", "error", err)
			return nil, false, err
		}
		if err := s.strikes.Check(ctx, createdBy); err != nil {
			return nil, false, err
		}
	}

	canonical, err := canonicalURL(rawURL)
	if err != nil {
		return nil, false, ErrBadRequest
	}

	hash := shortid.Fingerprint(canonical)
	existing, err := s.store.GetLinkByHash(ctx, hash[:])
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("dedup lookup failed", "error", err)
		return nil, false, fmt.Errorf("dedup lookup: %w", err)
	}

	link := &model.Link{
		Hash:      hash[:],
		Link:      canonical,
		CreatedAt: time.Now().UTC(),
	}
	var origin *model.Origin
	// The id generator has no collision check; the unique index on
	// links.id plus one regeneration retry covers the birthday bound.
	for attempt := 0; ; attempt++ {
		link.ID, err = shortid.New(shortid.LinkIDLength)
		if err != nil {
			return nil, false, fmt.Errorf("generate link id: %w", err)
		}
		if s.recordIPs {
			origin = &model.Origin{LinkID: link.ID, CreatedBy: createdBy}
		}

		err = s.store.InsertLink(ctx, link, origin)
		if err == nil {
			break
		}
		if store.IsDuplicate(err) && attempt == 0 {
			s.logger.Warn("link id collision, regenerating", "id", link.ID)
			continue
		}
		s.logger.Error("link insert failed", "error", err)
		return nil, false, fmt.Errorf("insert link: %w", err)
	}

	s.logger.Info("link created", "id", link.ID)
	return link, false, nil
}

// Resolve returns the target URL for a display id.
func (s *LinkService) Resolve(ctx context.Context, id string) (string, error) {
	link, err := s.store.GetLinkByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		s.logger.Error("link lookup failed", "id", id, "error", err)
		return "", fmt.Errorf("resolve link: %w", err)
	}
	return link.Link, nil
}

// Info returns the public metadata for a link. The creator's address is
// included only when the caller presents a credential satisfying
// viewIps and an origin record still exists. A caller presenting an
// unknown or expired credential is rejected outright; a live credential
// without viewIps just gets the record without the address.
func (s *LinkService) Info(ctx context.Context, id, presented string) (*model.LinkInfo, error) {
	link, err := s.store.GetLinkByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("link lookup failed", "id", id, "error", err)
		return nil, fmt.Errorf("link info: %w", err)
	}

	info := &model.LinkInfo{
		ID:        link.ID,
		Hash:      hex.EncodeToString(link.Hash),
		Link:      link.Link,
		CreatedAt: link.CreatedAt.UTC().Format(time.RFC3339),
	}

	if presented != "" && s.tokens != nil && s.recordIPs {
		switch err := s.tokens.CheckPermission(ctx, presented, model.PermViewIPs); {
		case err == nil:
			origin, err := s.store.GetOrigin(ctx, link.ID)
			if errors.Is(err, store.ErrNotFound) {
				break // already pruned by retention, nothing to show
			}
			if err != nil {
				s.logger.Error("origin lookup failed", "id", id, "error", err)
				return nil, fmt.Errorf("link info origin: %w", err)
			}
			addr, err := DecodeOrigin(origin.CreatedBy)
			if err != nil {
				s.logger.Error("stored origin is malformed", "id", id, "error", err)
				return nil, fmt.Errorf("link info origin: %w", err)
			}
			info.CreatedBy = addr.String()
		case errors.Is(err, ErrForbidden):
			// Authenticated but without viewIps: omit the address.
		default:
			return nil, err
		}
	}

	return info, nil
}

// canonicalURL validates the target and returns its canonical string
// form, the exact bytes that get fingerprinted.
func canonicalURL(raw string) (string, error) {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

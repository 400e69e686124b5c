package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sayless/sayless/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", "") // in-memory
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(true, true); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func testHash(seed string) []byte {
	h := make([]byte, 32)
	copy(h, seed)
	return h
}

func testLink(id string, createdAt time.Time) *model.Link {
	return &model.Link{
		ID:        id,
		Hash:      testHash("hash-of-" + id),
		Link:      "https://example.com/" + id,
		CreatedAt: createdAt,
	}
}

func TestInsertAndGetLink(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	link := testLink("abc1234", time.Now().UTC())
	if err := s.InsertLink(ctx, link, nil); err != nil {
		t.Fatalf("InsertLink: %v", err)
	}

	got, err := s.GetLinkByID(ctx, "abc1234")
	if err != nil {
		t.Fatalf("GetLinkByID: %v", err)
	}
	if got.Link != link.Link {
		t.Errorf("Link = %q, want %q", got.Link, link.Link)
	}

	byHash, err := s.GetLinkByHash(ctx, link.Hash)
	if err != nil {
		t.Fatalf("GetLinkByHash: %v", err)
	}
	if byHash.ID != "abc1234" {
		t.Errorf("ID = %q, want abc1234", byHash.ID)
	}
}

func TestGetLinkNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetLinkByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetLinkByID: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetLinkByHash(ctx, make([]byte, 32)); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetLinkByHash: got %v, want ErrNotFound", err)
	}
}

func TestInsertLinkDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testLink("same-id", time.Now().UTC())
	b := testLink("same-id", time.Now().UTC())
	b.Hash = testHash("a-different-hash")

	if err := s.InsertLink(ctx, a, nil); err != nil {
		t.Fatalf("first InsertLink: %v", err)
	}
	err := s.InsertLink(ctx, b, nil)
	if err == nil {
		t.Fatal("second insert with the same id should fail")
	}
	if !IsDuplicate(err) {
		t.Errorf("IsDuplicate(%v) = false, want true", err)
	}
}

func TestInsertLinkWithOriginTransactional(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	link := testLink("withorg", time.Now().UTC())
	origin := &model.Origin{LinkID: link.ID, CreatedBy: []byte{127, 0, 0, 1}}
	if err := s.InsertLink(ctx, link, origin); err != nil {
		t.Fatalf("InsertLink: %v", err)
	}

	got, err := s.GetOrigin(ctx, link.ID)
	if err != nil {
		t.Fatalf("GetOrigin: %v", err)
	}
	if string(got.CreatedBy) != string(origin.CreatedBy) {
		t.Errorf("CreatedBy = %v, want %v", got.CreatedBy, origin.CreatedBy)
	}

	// A duplicate id must roll back the whole transaction: the second
	// link's origin row must not survive.
	dup := testLink("withorg", time.Now().UTC())
	dup.Hash = testHash("yet-another-hash")
	dupOrigin := &model.Origin{LinkID: dup.ID, CreatedBy: []byte{10, 0, 0, 1}}
	if err := s.InsertLink(ctx, dup, dupOrigin); err == nil {
		t.Fatal("duplicate insert should fail")
	}
	after, err := s.GetOrigin(ctx, link.ID)
	if err != nil {
		t.Fatalf("GetOrigin after failed insert: %v", err)
	}
	if string(after.CreatedBy) != string(origin.CreatedBy) {
		t.Error("origin row changed after a rolled-back insert")
	}
}

func TestDeleteOriginsBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := testLink("oldlink", now.Add(-30*24*time.Hour))
	fresh := testLink("newlink", now)
	if err := s.InsertLink(ctx, old, &model.Origin{LinkID: old.ID, CreatedBy: []byte{1}}); err != nil {
		t.Fatalf("InsertLink old: %v", err)
	}
	if err := s.InsertLink(ctx, fresh, &model.Origin{LinkID: fresh.ID, CreatedBy: []byte{2}}); err != nil {
		t.Fatalf("InsertLink fresh: %v", err)
	}

	n, err := s.DeleteOriginsBefore(ctx, now.Add(-14*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOriginsBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}

	if _, err := s.GetOrigin(ctx, old.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("old origin should be gone, got %v", err)
	}
	if _, err := s.GetOrigin(ctx, fresh.ID); err != nil {
		t.Errorf("fresh origin should survive: %v", err)
	}
	// Links are never deleted by retention.
	if _, err := s.GetLinkByID(ctx, old.ID); err != nil {
		t.Errorf("old link must survive pruning: %v", err)
	}
}

func TestStrikes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	origin := []byte{192, 0, 2, 1}

	// Missing row counts as zero.
	n, err := s.GetStrikes(ctx, origin)
	if err != nil {
		t.Fatalf("GetStrikes: %v", err)
	}
	if n != 0 {
		t.Errorf("strikes = %d, want 0", n)
	}

	total, err := s.AddStrikes(ctx, origin, 3)
	if err != nil {
		t.Fatalf("AddStrikes: %v", err)
	}
	if total != 3 {
		t.Errorf("total after insert = %d, want 3", total)
	}
	total, err = s.AddStrikes(ctx, origin, 2)
	if err != nil {
		t.Fatalf("AddStrikes upsert: %v", err)
	}
	if total != 5 {
		t.Errorf("total after upsert = %d, want 5", total)
	}
	n, err = s.GetStrikes(ctx, origin)
	if err != nil {
		t.Fatalf("GetStrikes: %v", err)
	}
	if n != 5 {
		t.Errorf("strikes = %d, want 5", n)
	}

	if err := s.ClearStrikes(ctx, origin); err != nil {
		t.Fatalf("ClearStrikes: %v", err)
	}
	n, _ = s.GetStrikes(ctx, origin)
	if n != 0 {
		t.Errorf("strikes after clear = %d, want 0", n)
	}
}

func TestAddStrikesSaturates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	origin := []byte{192, 0, 2, 2}

	// Two near-max reports would overflow a 16-bit counter; the stored
	// amount must pin at 65535 instead.
	if _, err := s.AddStrikes(ctx, origin, 65000); err != nil {
		t.Fatalf("AddStrikes: %v", err)
	}
	total, err := s.AddStrikes(ctx, origin, 65000)
	if err != nil {
		t.Fatalf("AddStrikes past max: %v", err)
	}
	if total != 65535 {
		t.Errorf("total = %d, want 65535", total)
	}

	n, err := s.GetStrikes(ctx, origin)
	if err != nil {
		t.Fatalf("GetStrikes after saturation: %v", err)
	}
	if n != 65535 {
		t.Errorf("strikes = %d, want 65535", n)
	}
}

func TestTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	tok := &model.Token{
		Value:     "test-token-value",
		CreatedAt: now,
		ExpiresAt: now.Add(365 * 24 * time.Hour),
		PermissionFlags: model.PermissionFlags{
			CreateLink: true,
			ViewIPs:    true,
		},
	}
	if err := s.InsertToken(ctx, tok); err != nil {
		t.Fatalf("InsertToken: %v", err)
	}

	got, err := s.GetToken(ctx, "test-token-value")
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if !got.CreateLink || !got.ViewIPs || got.Admin || got.CreateToken {
		t.Errorf("permission flags mismatch: %+v", got.PermissionFlags)
	}
	if got.Expired(now) {
		t.Error("fresh token should not be expired")
	}

	// Revocation is a soft delete: the row survives with expires_at = now.
	affected, err := s.ExpireToken(ctx, "test-token-value", now)
	if err != nil {
		t.Fatalf("ExpireToken: %v", err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}
	got, err = s.GetToken(ctx, "test-token-value")
	if err != nil {
		t.Fatalf("GetToken after revoke: %v", err)
	}
	if !got.Expired(now) {
		t.Error("revoked token should be expired")
	}

	affected, err = s.ExpireToken(ctx, "no-such-token", now)
	if err != nil {
		t.Fatalf("ExpireToken missing: %v", err)
	}
	if affected != 0 {
		t.Errorf("affected = %d for missing token, want 0", affected)
	}
}

func TestListTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, v := range []string{"tok-a", "tok-b"} {
		tok := &model.Token{
			Value:     v,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
			ExpiresAt: now.Add(time.Hour),
		}
		if err := s.InsertToken(ctx, tok); err != nil {
			t.Fatalf("InsertToken %s: %v", v, err)
		}
	}

	toks, err := s.ListTokens(ctx)
	if err != nil {
		t.Fatalf("ListTokens: %v", err)
	}
	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2", len(toks))
	}
	if toks[0].Value != "tok-b" {
		t.Errorf("newest first: got %q", toks[0].Value)
	}
}

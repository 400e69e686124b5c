package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sayless/sayless/internal/model"
	"github.com/sayless/sayless/internal/store"
)

func TestRetentionRunOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insert := func(id string, age time.Duration) {
		t.Helper()
		hash := make([]byte, 32)
		copy(hash, id)
		link := &model.Link{
			ID:        id,
			Hash:      hash,
			Link:      "https://example.com/" + id,
			CreatedAt: now.Add(-age),
		}
		origin := &model.Origin{LinkID: id, CreatedBy: []byte{10, 0, 0, 1}}
		if err := st.InsertLink(ctx, link, origin); err != nil {
			t.Fatalf("InsertLink %s: %v", id, err)
		}
	}

	insert("ancient", 21*24*time.Hour)
	insert("recent1", 24*time.Hour)

	r, err := NewRetention(st, 14*24*time.Hour, "0 0 * * *", testLogger())
	if err != nil {
		t.Fatalf("NewRetention: %v", err)
	}

	n, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d origins, want 1", n)
	}

	// The old link's attribution is gone; the link itself survives.
	if _, err := st.GetOrigin(ctx, "ancient"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ancient origin should be pruned, got %v", err)
	}
	if _, err := st.GetLinkByID(ctx, "ancient"); err != nil {
		t.Errorf("ancient link must survive: %v", err)
	}
	if _, err := st.GetOrigin(ctx, "recent1"); err != nil {
		t.Errorf("recent origin should survive: %v", err)
	}

	// A second pass finds nothing left to prune.
	n, err = r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if n != 0 {
		t.Errorf("second pass pruned %d origins, want 0", n)
	}
}

func TestRetentionRejectsBadSchedule(t *testing.T) {
	st := newTestStore(t)
	if _, err := NewRetention(st, time.Hour, "not a cron line", testLogger()); err == nil {
		t.Error("expected error for an invalid cron expression")
	}
}

func TestRetentionStartStop(t *testing.T) {
	st := newTestStore(t)
	r, err := NewRetention(st, time.Hour, "@hourly", testLogger())
	if err != nil {
		t.Fatalf("NewRetention: %v", err)
	}
	r.Start()
	r.Stop() // must not hang or panic with no run in flight
}

package tally_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openvote/backend/config"
	"github.com/openvote/backend/internal/memstore"
	"github.com/openvote/backend/internal/sessions"
	"github.com/openvote/backend/internal/tally"
	"github.com/openvote/backend/internal/votes"
)

func seedVotes(t *testing.T, store *memstore.Store) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	sessionSvc := sessions.NewService(store, zap.NewNop())
	sess, err := sessionSvc.Create(ctx, "Budget 2025", time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	// u1: +1 then -1 (current -1, log sum 0); u2: -1 (current -1, log sum -1)
	u1, u2 := uuid.New(), uuid.New()
	for _, cast := range []struct {
		user  uuid.UUID
		value int
	}{{u1, 1}, {u2, -1}, {u1, -1}} {
		if _, err := store.Cast(ctx, sess.ID, cast.user, cast.value, votes.DailyLimit{}); err != nil {
			t.Fatalf("Cast() error: %v", err)
		}
	}
	return sess.ID
}

func TestLiveTallyModes(t *testing.T) {
	store := memstore.NewStore()
	sessionID := seedVotes(t, store)
	ctx := context.Background()

	tests := []struct {
		mode       string
		wantTotal  int
		wantVoters int
	}{
		// current standing: both users sit at -1
		{mode: config.TallyModePositions, wantTotal: -2, wantVoters: 2},
		// cumulative log: +1 -1 -1
		{mode: config.TallyModeActions, wantTotal: -1, wantVoters: 2},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			engine := tally.NewEngine(store, store, tt.mode)
			got, err := engine.Live(ctx, sessionID)
			if err != nil {
				t.Fatalf("Live() error: %v", err)
			}
			if got.Total != tt.wantTotal || got.Voters != tt.wantVoters {
				t.Errorf("Live() = total %d voters %d, want total %d voters %d",
					got.Total, got.Voters, tt.wantTotal, tt.wantVoters)
			}
			if got.Mode != tt.mode {
				t.Errorf("Mode = %q, want %q", got.Mode, tt.mode)
			}
		})
	}
}

func TestFinalTallyOfClosedSession(t *testing.T) {
	store := memstore.NewStore()
	sessionID := seedVotes(t, store)
	ctx := context.Background()

	sessionSvc := sessions.NewService(store, zap.NewNop())
	closed, err := sessionSvc.Close(ctx, sessionID)
	if err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if closed.ClosedAt == nil {
		t.Fatal("closed session has no closed_at")
	}

	engine := tally.NewEngine(store, store, config.TallyModePositions)
	final, err := engine.Final(ctx, sessionID)
	if err != nil {
		t.Fatalf("Final() error: %v", err)
	}
	if final.Total != -2 || final.Voters != 2 {
		t.Errorf("Final() = total %d voters %d, want total -2 voters 2", final.Total, final.Voters)
	}
}

func TestHistoryCursor(t *testing.T) {
	store := memstore.NewStore()
	ctx := context.Background()
	sessionSvc := sessions.NewService(store, zap.NewNop())
	sess, err := sessionSvc.Create(ctx, "Budget 2025", time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	user := uuid.New()
	for i := 0; i < 5; i++ {
		value := 1
		if i%2 == 1 {
			value = -1
		}
		if _, err := store.Cast(ctx, sess.ID, user, value, votes.DailyLimit{}); err != nil {
			t.Fatalf("Cast() error: %v", err)
		}
	}

	engine := tally.NewEngine(store, store, config.TallyModePositions)

	page1, err := engine.History(ctx, sess.ID, 0, 2)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("page1 len = %d, want 2", len(page1))
	}

	// restart from the cursor; pages never overlap and stay ordered
	page2, err := engine.History(ctx, sess.ID, page1[1].ID, 10)
	if err != nil {
		t.Fatalf("History(cursor) error: %v", err)
	}
	if len(page2) != 3 {
		t.Fatalf("page2 len = %d, want 3", len(page2))
	}
	prev := page1[0].ID
	for _, a := range append(page1[1:], page2...) {
		if a.ID <= prev {
			t.Fatal("history ids are not strictly ascending")
		}
		prev = a.ID
	}
}

func TestTallyOfDeletedSessionIsNotFound(t *testing.T) {
	store := memstore.NewStore()
	sessionID := seedVotes(t, store)
	ctx := context.Background()

	sessionSvc := sessions.NewService(store, zap.NewNop())
	if err := sessionSvc.Delete(ctx, sessionID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	engine := tally.NewEngine(store, store, config.TallyModePositions)
	if _, err := engine.Live(ctx, sessionID); !errors.Is(err, sessions.ErrNotFound) {
		t.Fatalf("Live(deleted) error = %v, want ErrNotFound", err)
	}
	if _, err := engine.History(ctx, sessionID, 0, 10); !errors.Is(err, sessions.ErrNotFound) {
		t.Fatalf("History(deleted) error = %v, want ErrNotFound", err)
	}

	// cascade removed the underlying rows, not only the session record
	total, voters, err := store.SumPositions(ctx, sessionID)
	if err != nil || total != 0 || voters != 0 {
		t.Errorf("positions after delete: total %d voters %d err %v, want empty", total, voters, err)
	}
	total, voters, err = store.SumActions(ctx, sessionID)
	if err != nil || total != 0 || voters != 0 {
		t.Errorf("actions after delete: total %d voters %d err %v, want empty", total, voters, err)
	}
}

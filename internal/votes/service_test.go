package votes_test

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

type fixture struct {
	store    *memstore.Store
	sessions *sessions.Service
	engine   *tally.Engine
	votes    *votes.Service
}

func newFixture(t *testing.T, limit votes.DailyLimit) *fixture {
	t.Helper()
	store := memstore.NewStore()
	sessionSvc := sessions.NewService(store, zap.NewNop())
	engine := tally.NewEngine(store, store, config.TallyModePositions)
	voteSvc := votes.NewService(sessionSvc, store, engine, limit, zap.NewNop())
	return &fixture{store: store, sessions: sessionSvc, engine: engine, votes: voteSvc}
}

func (f *fixture) openSession(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	sess, err := f.sessions.Create(ctx, "Budget 2025", time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := f.sessions.Open(ctx, sess.ID); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return sess.ID
}

func TestCastValidatesValue(t *testing.T) {
	f := newFixture(t, votes.DailyLimit{})
	f.openSession(t)
	user := uuid.New()

	for _, v := range []int{-2, 2, 42} {
		if _, err := f.votes.Cast(context.Background(), user, v); !errors.Is(err, votes.ErrInvalidValue) {
			t.Errorf("Cast(%d) error = %v, want ErrInvalidValue", v, err)
		}
	}
	for _, v := range []int{-1, 0, 1} {
		if _, err := f.votes.Cast(context.Background(), user, v); err != nil {
			t.Errorf("Cast(%d) error = %v, want nil", v, err)
		}
	}
}

func TestCastRequiresOpenSession(t *testing.T) {
	f := newFixture(t, votes.DailyLimit{})
	if _, err := f.votes.Cast(context.Background(), uuid.New(), 1); !errors.Is(err, sessions.ErrNoOpenSession) {
		t.Fatalf("Cast() error = %v, want ErrNoOpenSession", err)
	}
}

// Scenario: U1 casts +1, U2 casts -1, U1 flips to -1. The positions follow
// the last cast per user, the tally follows the positions, and the action
// log keeps all three entries in order.
func TestCastUpsertsPositionAndAppendsActions(t *testing.T) {
	f := newFixture(t, votes.DailyLimit{})
	sessionID := f.openSession(t)
	ctx := context.Background()
	u1, u2 := uuid.New(), uuid.New()

	res, err := f.votes.Cast(ctx, u1, 1)
	if err != nil {
		t.Fatalf("Cast(u1,+1) error: %v", err)
	}
	if res.Tally.Total != 1 || res.Tally.Voters != 1 {
		t.Errorf("tally after first cast = %+v, want total 1 voters 1", res.Tally)
	}
	if res.Position.Value != 1 {
		t.Errorf("position = %d, want 1", res.Position.Value)
	}

	res, err = f.votes.Cast(ctx, u2, -1)
	if err != nil {
		t.Fatalf("Cast(u2,-1) error: %v", err)
	}
	if res.Tally.Total != 0 || res.Tally.Voters != 2 {
		t.Errorf("tally after second cast = %+v, want total 0 voters 2", res.Tally)
	}

	res, err = f.votes.Cast(ctx, u1, -1)
	if err != nil {
		t.Fatalf("Cast(u1,-1) error: %v", err)
	}
	if res.Tally.Total != -2 || res.Tally.Voters != 2 {
		t.Errorf("tally after flip = %+v, want total -2 voters 2", res.Tally)
	}

	pos, err := f.votes.GetPosition(ctx, sessionID, u1)
	if err != nil || pos == nil {
		t.Fatalf("GetPosition(u1) = %v, %v", pos, err)
	}
	if pos.Value != -1 {
		t.Errorf("u1 position = %d, want -1", pos.Value)
	}

	actions, err := f.engine.History(ctx, sessionID, 0, 10)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("action log len = %d, want 3", len(actions))
	}
	want := []struct {
		user  uuid.UUID
		value int
	}{{u1, 1}, {u2, -1}, {u1, -1}}
	for i, w := range want {
		if actions[i].UserID != w.user || actions[i].Value != w.value {
			t.Errorf("action[%d] = (%s,%d), want (%s,%d)", i, actions[i].UserID, actions[i].Value, w.user, w.value)
		}
	}
}

// Casting the same value twice keeps the position value, refreshes its
// updated_at, and still appends a second action.
func TestCastSameValueTwice(t *testing.T) {
	f := newFixture(t, votes.DailyLimit{})
	sessionID := f.openSession(t)
	ctx := context.Background()
	user := uuid.New()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	f.store.SetNow(func() time.Time { return base })
	if _, err := f.votes.Cast(ctx, user, 1); err != nil {
		t.Fatalf("first Cast() error: %v", err)
	}

	f.store.SetNow(func() time.Time { return base.Add(time.Minute) })
	res, err := f.votes.Cast(ctx, user, 1)
	if err != nil {
		t.Fatalf("second Cast() error: %v", err)
	}
	if res.Position.Value != 1 {
		t.Errorf("position = %d, want 1", res.Position.Value)
	}
	if !res.Position.UpdatedAt.After(base) {
		t.Error("position updated_at was not refreshed")
	}
	if res.Tally.Total != 1 || res.Tally.Voters != 1 {
		t.Errorf("tally = %+v, want total 1 voters 1", res.Tally)
	}

	actions, err := f.engine.History(ctx, sessionID, 0, 10)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(actions) != 2 {
		t.Errorf("action log len = %d, want 2 distinct actions", len(actions))
	}
}

// Daily-limit mode: the second cast on the same UTC calendar day is
// rejected without touching the position; the next day it succeeds.
func TestCastDailyLimit(t *testing.T) {
	f := newFixture(t, votes.DailyLimit{Enabled: true, Zone: "UTC"})
	sessionID := f.openSession(t)
	ctx := context.Background()
	user := uuid.New()

	day1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	f.store.SetNow(func() time.Time { return day1 })
	if _, err := f.votes.Cast(ctx, user, 1); err != nil {
		t.Fatalf("first Cast() error: %v", err)
	}

	f.store.SetNow(func() time.Time { return day1.Add(2 * time.Hour) })
	if _, err := f.votes.Cast(ctx, user, -1); !errors.Is(err, votes.ErrRateLimited) {
		t.Fatalf("same-day Cast() error = %v, want ErrRateLimited", err)
	}

	// the rejected cast must not have leaked a position update
	pos, err := f.votes.GetPosition(ctx, sessionID, user)
	if err != nil || pos == nil {
		t.Fatalf("GetPosition() = %v, %v", pos, err)
	}
	if pos.Value != 1 {
		t.Errorf("position after rejected cast = %d, want 1", pos.Value)
	}

	// 23:59 same day is still the same calendar date
	f.store.SetNow(func() time.Time { return time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC) })
	if _, err := f.votes.Cast(ctx, user, -1); !errors.Is(err, votes.ErrRateLimited) {
		t.Fatalf("late same-day Cast() error = %v, want ErrRateLimited", err)
	}

	f.store.SetNow(func() time.Time { return time.Date(2025, 3, 2, 0, 1, 0, 0, time.UTC) })
	res, err := f.votes.Cast(ctx, user, -1)
	if err != nil {
		t.Fatalf("next-day Cast() error = %v, want success", err)
	}
	if res.Position.Value != -1 {
		t.Errorf("position = %d, want -1", res.Position.Value)
	}

	actions, err := f.engine.History(ctx, sessionID, 0, 10)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(actions) != 2 {
		t.Errorf("action log len = %d, want 2 (rejected cast recorded nothing)", len(actions))
	}
}

// The live tally always equals the sum of current positions.
func TestTallyMatchesPositions(t *testing.T) {
	f := newFixture(t, votes.DailyLimit{})
	sessionID := f.openSession(t)
	ctx := context.Background()

	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	casts := []struct {
		user  int
		value int
	}{{0, 1}, {1, 1}, {2, -1}, {0, -1}, {3, 0}, {1, 1}}

	for _, cst := range casts {
		if _, err := f.votes.Cast(ctx, users[cst.user], cst.value); err != nil {
			t.Fatalf("Cast() error: %v", err)
		}
		tly, err := f.engine.Live(ctx, sessionID)
		if err != nil {
			t.Fatalf("Live() error: %v", err)
		}
		sum := 0
		voters := 0
		for _, u := range users {
			pos, err := f.votes.GetPosition(ctx, sessionID, u)
			if err != nil {
				t.Fatalf("GetPosition() error: %v", err)
			}
			if pos != nil {
				sum += pos.Value
				voters++
			}
		}
		if tly.Total != sum || tly.Voters != voters {
			t.Fatalf("Live() = %+v, positions sum %d voters %d", tly, sum, voters)
		}
	}
}

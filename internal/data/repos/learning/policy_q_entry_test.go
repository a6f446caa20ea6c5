package learning

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

func TestQValueRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewQValueRepo(tx, testutil.Logger(t))

	scope := types.Scope{UserID: "u-q", ModuleID: "eva_intro"}
	state := types.DecisionState("m2|r1|s0|p:practice")
	hard := types.Action{Difficulty: types.DifficultyHard, Pace: types.PaceFast, Adaptation: types.AdaptationIncrease}
	easy := types.Action{Difficulty: types.DifficultyEasy, Pace: types.PaceSlow, Adaptation: types.AdaptationMaintain}

	if got, err := repo.Get(ctx, scope, state, hard.Index()); err != nil || got != nil {
		t.Fatalf("absent Get: %v %v", got, err)
	}

	testutil.SeedQEntry(t, ctx, tx, scope, state, hard, 0.5)
	if err := repo.Put(ctx, &types.QEntry{UserID: scope.UserID, ModuleID: scope.ModuleID, State: state, ActionIndex: easy.Index(), QValue: -0.2, VisitCount: 1, UpdatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.Put(ctx, &types.QEntry{UserID: scope.UserID, ModuleID: scope.ModuleID, State: state, ActionIndex: hard.Index(), QValue: 0.75, VisitCount: 2, UpdatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Put upsert: %v", err)
	}
	testutil.SeedQEntry(t, ctx, tx, types.Scope{UserID: "u-q", ModuleID: "spacewalk"}, state, hard, 9)

	rows, err := repo.ListByState(ctx, scope, state)
	if err != nil {
		t.Fatalf("ListByState: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected scope-isolated rows, got %d", len(rows))
	}
	if rows[0].ActionIndex != easy.Index() || rows[1].ActionIndex != hard.Index() {
		t.Fatalf("order: %+v", rows)
	}
	if rows[1].QValue != 0.75 || rows[1].VisitCount != 2 {
		t.Fatalf("upsert not applied: %+v", rows[1])
	}
}

func TestDecisionMemoryAndOutcomeTraceRepos(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	log := testutil.Logger(t)
	mem := NewDecisionMemoryRepo(tx, log)
	traces := NewOutcomeTraceRepo(tx, log)

	scope := types.Scope{UserID: "u-mem", ModuleID: "eva_intro"}
	if got, err := mem.Get(ctx, scope); err != nil || got != nil {
		t.Fatalf("absent Get: %v %v", got, err)
	}
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := mem.Put(ctx, &types.DecisionMemory{UserID: scope.UserID, ModuleID: scope.ModuleID, State: "a", ActionIndex: 3, DecidedAt: at}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := mem.Put(ctx, &types.DecisionMemory{UserID: scope.UserID, ModuleID: scope.ModuleID, State: "b", ActionIndex: 7, DecidedAt: at.Add(time.Minute)}); err != nil {
		t.Fatalf("Put upsert: %v", err)
	}
	got, err := mem.Get(ctx, scope)
	if err != nil || got == nil || got.State != "b" || got.ActionIndex != 7 {
		t.Fatalf("Get=%+v err=%v", got, err)
	}

	for i := 0; i < 3; i++ {
		row := &types.OutcomeTrace{
			UserID: scope.UserID, ModuleID: scope.ModuleID, SkillID: "suit_check",
			State: "b", ActionIndex: i, ObservedAt: at.Add(time.Duration(i) * time.Minute),
			Metrics: []byte(`{"accuracy":0.5}`), Unlocks: []byte(`[]`),
		}
		if err := traces.Create(ctx, row); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if row.ID.String() == "00000000-0000-0000-0000-000000000000" {
			t.Fatalf("id not assigned")
		}
	}
	list, err := traces.ListByScope(ctx, scope, 2)
	if err != nil {
		t.Fatalf("ListByScope: %v", err)
	}
	if len(list) != 2 || list[0].ActionIndex != 2 || list[1].ActionIndex != 1 {
		t.Fatalf("ListByScope=%+v", list)
	}
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/coordinator"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/policy"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/skillgraph"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

func testSource() skillgraph.StaticSource {
	return skillgraph.StaticSource{Def: skillgraph.Definition{
		Skills: []types.SkillDefinition{
			{ID: "skillA", MasteryThreshold: 0.8},
			{ID: "skillB", MasteryThreshold: 0.75},
		},
		Modules: []types.ModuleDefinition{{
			ID: "eva",
			Requirements: map[types.Level][]types.SkillRequirement{
				types.LevelBasics: {{SkillID: "skillA", Threshold: 0.8}, {SkillID: "skillB", Threshold: 0.75}},
			},
		}},
	}}
}

func newTestService(t *testing.T) MasteryService {
	t.Helper()
	svc, err := NewMasteryService(logger.Nop(), testSource(), repos.NewMemorySet(), nil, nil, MasteryConfig{
		Random: policy.NewRandomSource(1),
	})
	if err != nil {
		t.Fatalf("NewMasteryService: %v", err)
	}
	return svc
}

func TestServiceRequiresInitialize(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if svc.Ready() {
		t.Fatal("ready before Initialize")
	}
	if _, err := svc.GetMastery(ctx, "u1", "skillA"); !errors.Is(err, types.ErrNotInitialized) {
		t.Fatalf("err=%v", err)
	}
	if _, err := svc.ProcessOutcome(ctx, coordinator.Outcome{}); !errors.Is(err, types.ErrNotInitialized) {
		t.Fatalf("err=%v", err)
	}
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !svc.Ready() {
		t.Fatal("not ready after Initialize")
	}
}

func TestServiceEndToEnd(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	st, err := svc.ObserveSkillPerformance(ctx, "u1", "skillA", 1.0, at)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if st.KnownProbability != 0.25 {
		t.Fatalf("posterior=%v", st.KnownProbability)
	}
	m, _ := svc.GetMastery(ctx, "u1", "skillB")
	if m.Probability != 0 || m.Attempts != 0 {
		t.Fatalf("unseen skill mastery=%+v", m)
	}

	r, err := svc.CheckModuleReadiness(ctx, "u1", "eva", "")
	if err != nil {
		t.Fatalf("CheckModuleReadiness: %v", err)
	}
	if r.Ready || len(r.Missing) != 2 {
		t.Fatalf("readiness=%+v", r)
	}

	zero := 0.0
	a, err := svc.SelectAction(ctx, types.Scope{UserID: "u1", ModuleID: "eva"}, "s", nil, &zero)
	if err != nil || a.Index() != 0 {
		t.Fatalf("SelectAction=%v err=%v", a, err)
	}
	q, err := svc.UpdatePolicy(ctx, types.Scope{UserID: "u1", ModuleID: "eva"}, "s", a, 10, "t", nil)
	if err != nil || q.QValue != 1.0 {
		t.Fatalf("UpdatePolicy=%+v err=%v", q, err)
	}

	fb, err := svc.ProcessOutcome(ctx, coordinator.Outcome{UserID: "u1", ModuleID: "eva", SkillID: "skillB", SuccessRate: 0.3, At: at})
	if err != nil {
		t.Fatalf("ProcessOutcome: %v", err)
	}
	if !fb.RecommendedAction.Valid() {
		t.Fatalf("fb=%+v", fb)
	}
	traces, err := svc.ListOutcomes(ctx, types.Scope{UserID: "u1", ModuleID: "eva"}, 0)
	if err != nil || len(traces) != 1 {
		t.Fatalf("traces=%d err=%v", len(traces), err)
	}

	def, err := svc.SkillGraph()
	if err != nil || len(def.Skills) != 2 {
		t.Fatalf("graph=%+v err=%v", def, err)
	}
}

func TestInitializeRejectsBadGraph(t *testing.T) {
	src := skillgraph.StaticSource{Def: skillgraph.Definition{Skills: []types.SkillDefinition{
		{ID: "a", MasteryThreshold: 0.5, PrerequisiteFor: []string{"b"}},
		{ID: "b", MasteryThreshold: 0.5, PrerequisiteFor: []string{"a"}},
	}}}
	svc, _ := NewMasteryService(logger.Nop(), src, repos.NewMemorySet(), nil, nil, MasteryConfig{})
	if err := svc.Initialize(context.Background()); !errors.Is(err, types.ErrCyclicGraph) {
		t.Fatalf("err=%v", err)
	}
	if svc.Ready() {
		t.Fatal("ready after failed Initialize")
	}
}

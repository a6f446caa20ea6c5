package gaps

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/skillgraph"
)

type snapshot map[string]float64

func (s snapshot) Snapshot(context.Context, string) (map[string]float64, error) { return s, nil }

type brokenSnapshot struct{}

func (brokenSnapshot) Snapshot(context.Context, string) (map[string]float64, error) {
	return nil, types.Unavailable(errors.New("timeout"))
}

func TestPrerequisiteOutranksLargerRawGap(t *testing.T) {
	g, err := skillgraph.New(skillgraph.Definition{Skills: []types.SkillDefinition{
		{ID: "A", MasteryThreshold: 0.8, PrerequisiteFor: []string{"B"}},
		{ID: "B", MasteryThreshold: 0.8},
		{ID: "C", MasteryThreshold: 0.8},
	}})
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	a, _ := NewAnalyzer(g, snapshot{"A": 0.2, "B": 0.9, "C": 0.1})

	out, err := a.IdentifyGaps(context.Background(), "u1")
	if err != nil {
		t.Fatalf("IdentifyGaps: %v", err)
	}
	var ids []string
	var tiers []types.PriorityTier
	for _, gp := range out {
		ids = append(ids, gp.SkillID)
		tiers = append(tiers, gp.PriorityTier)
	}
	if diff := cmp.Diff([]string{"A", "C"}, ids); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]types.PriorityTier{types.PriorityCritical, types.PriorityHigh}, tiers); diff != "" {
		t.Fatalf("tiers (-want +got):\n%s", diff)
	}
	if out[1].Gap <= out[0].Gap {
		t.Fatalf("C should carry the larger raw gap: %+v", out)
	}
}

func TestRankOrderingAndUnobservedSkills(t *testing.T) {
	skills := []types.SkillDefinition{
		{ID: "zeta", MasteryThreshold: 0.5},
		{ID: "alpha", MasteryThreshold: 0.5},
		{ID: "mid", MasteryThreshold: 0.9},
		{ID: "done", MasteryThreshold: 0.6},
		{ID: "edge", MasteryThreshold: 0.6},
	}
	probs := map[string]float64{"zeta": 0.4, "alpha": 0.4, "mid": 0.65, "done": 0.61, "edge": 0.6}

	out := Rank(skills, probs)
	want := []types.KnowledgeGap{
		{SkillID: "mid", Probability: 0.65, Threshold: 0.9, Gap: 0.25, ProficiencyLabel: types.ProficiencyAdvanced, PriorityTier: types.PriorityMedium},
		{SkillID: "alpha", Probability: 0.4, Threshold: 0.5, Gap: 0.1, ProficiencyLabel: types.ProficiencyIntermediate, PriorityTier: types.PriorityLow},
		{SkillID: "zeta", Probability: 0.4, Threshold: 0.5, Gap: 0.1, ProficiencyLabel: types.ProficiencyIntermediate, PriorityTier: types.PriorityLow},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("Rank (-want +got):\n%s", diff)
	}

	out = Rank(skills[:1], nil)
	if len(out) != 1 || out[0].Probability != 0 || out[0].PriorityTier != types.PriorityHigh {
		t.Fatalf("unobserved skill should be a high gap: %+v", out)
	}
}

func TestRankTierBoundariesFromThresholds(t *testing.T) {
	cases := []struct {
		threshold float64
		p         float64
		prereq    bool
		wantGap   float64
		want      types.PriorityTier
	}{
		{0.9, 0.7, false, 0.2, types.PriorityLow},
		{0.8, 0.5, false, 0.3, types.PriorityMedium},
		{0.8, 0.3, true, 0.5, types.PriorityHigh},
		{0.7, 0.4, false, 0.3, types.PriorityMedium},
		{0.6, 0.4, false, 0.2, types.PriorityLow},
		{0.9, 0.4, true, 0.5, types.PriorityHigh},
		{0.9, 0.3, true, 0.6, types.PriorityCritical},
	}
	for _, tc := range cases {
		s := types.SkillDefinition{ID: "s", MasteryThreshold: tc.threshold}
		if tc.prereq {
			s.PrerequisiteFor = []string{"next"}
		}
		out := Rank([]types.SkillDefinition{s}, map[string]float64{"s": tc.p})
		if len(out) != 1 {
			t.Fatalf("threshold=%v p=%v: want one gap, got %+v", tc.threshold, tc.p, out)
		}
		if out[0].Gap != tc.wantGap || out[0].PriorityTier != tc.want {
			t.Fatalf("threshold=%v p=%v: got gap=%v tier=%s want gap=%v tier=%s",
				tc.threshold, tc.p, out[0].Gap, out[0].PriorityTier, tc.wantGap, tc.want)
		}
	}
}

func TestTierAndProficiencyBoundaries(t *testing.T) {
	tiers := []struct {
		gap    float64
		prereq bool
		want   types.PriorityTier
	}{
		{0.51, true, types.PriorityCritical},
		{0.5, true, types.PriorityHigh},
		{0.9, false, types.PriorityHigh},
		{0.31, false, types.PriorityHigh},
		{0.05, true, types.PriorityHigh},
		{0.3, false, types.PriorityMedium},
		{0.21, false, types.PriorityMedium},
		{0.2, false, types.PriorityLow},
	}
	for _, tc := range tiers {
		if got := Tier(tc.gap, tc.prereq); got != tc.want {
			t.Fatalf("Tier(%v,%v)=%s want %s", tc.gap, tc.prereq, got, tc.want)
		}
	}
	labels := []struct {
		p    float64
		want types.ProficiencyLabel
	}{
		{0, types.ProficiencyBeginner},
		{0.299, types.ProficiencyBeginner},
		{0.3, types.ProficiencyIntermediate},
		{0.6, types.ProficiencyAdvanced},
		{0.8, types.ProficiencyExpert},
	}
	for _, tc := range labels {
		if got := Proficiency(tc.p); got != tc.want {
			t.Fatalf("Proficiency(%v)=%s want %s", tc.p, got, tc.want)
		}
	}
}

func TestIdentifyGapsPropagatesStoreFailure(t *testing.T) {
	g, _ := skillgraph.New(skillgraph.Definition{Skills: []types.SkillDefinition{{ID: "A", MasteryThreshold: 0.5}}})
	a, _ := NewAnalyzer(g, brokenSnapshot{})
	if _, err := a.IdentifyGaps(context.Background(), "u1"); !errors.Is(err, types.ErrPersistenceUnavailable) {
		t.Fatalf("err=%v", err)
	}
}

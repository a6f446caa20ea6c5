package skillgraph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

func evaDefinition() Definition {
	return Definition{
		Skills: []types.SkillDefinition{
			{ID: "suit_check", MasteryThreshold: 0.8, PrerequisiteFor: []string{"tether_ops", "airlock_cycle"}},
			{ID: "tether_ops", MasteryThreshold: 0.75, PrerequisiteFor: []string{"eva_navigation"}},
			{ID: "airlock_cycle", MasteryThreshold: 0.7},
			{ID: "eva_navigation", MasteryThreshold: 0.85},
		},
		Modules: []types.ModuleDefinition{
			{
				ID:             "eva_intro",
				RequiredSkills: []string{"suit_check"},
				Requirements: map[types.Level][]types.SkillRequirement{
					types.LevelZeroG: {{SkillID: "tether_ops", Threshold: 0.8}},
				},
			},
			{ID: "spacewalk", RequiredSkills: []string{"tether_ops", "eva_navigation"}, LevelThresholds: map[types.Level]float64{types.LevelBasics: 0.6}},
		},
	}
}

func TestNewBuildsIndexes(t *testing.T) {
	g, err := New(evaDefinition())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var ids []string
	for _, s := range g.Skills() {
		ids = append(ids, s.ID)
	}
	want := []string{"airlock_cycle", "eva_navigation", "suit_check", "tether_ops"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("skills order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"eva_intro", "spacewalk"}, g.ModulesRequiring("tether_ops")); diff != "" {
		t.Fatalf("ModulesRequiring (-want +got):\n%s", diff)
	}
	if got := g.ModulesRequiring("airlock_cycle"); len(got) != 0 {
		t.Fatalf("airlock_cycle gates nothing, got %v", got)
	}
	s, ok := g.Skill("suit_check")
	if !ok || s.DisplayName != "suit_check" || !s.IsPrerequisite() {
		t.Fatalf("unexpected skill %+v", s)
	}
}

func TestRequirementsResolveThresholds(t *testing.T) {
	g, err := New(evaDefinition())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		module string
		level  types.Level
		want   []types.SkillRequirement
	}{
		{"eva_intro", types.LevelBasics, []types.SkillRequirement{{SkillID: "suit_check", Threshold: 0.70}}},
		{"eva_intro", types.LevelZeroG, []types.SkillRequirement{{SkillID: "suit_check", Threshold: 0.90}, {SkillID: "tether_ops", Threshold: 0.8}}},
		{"spacewalk", types.LevelBasics, []types.SkillRequirement{{SkillID: "eva_navigation", Threshold: 0.6}, {SkillID: "tether_ops", Threshold: 0.6}}},
		{"spacewalk", types.LevelExpert, []types.SkillRequirement{{SkillID: "eva_navigation", Threshold: 0.95}, {SkillID: "tether_ops", Threshold: 0.95}}},
	}
	for _, tc := range cases {
		got, err := g.Requirements(tc.module, tc.level)
		if err != nil {
			t.Fatalf("%s/%s: %v", tc.module, tc.level, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s/%s (-want +got):\n%s", tc.module, tc.level, diff)
		}
	}

	if _, err := g.Requirements("nope", types.LevelBasics); !errors.Is(err, types.ErrUnknownModule) {
		t.Fatalf("unknown module err=%v", err)
	}
	if _, err := g.Requirements("eva_intro", "lunar"); !errors.Is(err, types.ErrUnknownLevel) {
		t.Fatalf("unknown level err=%v", err)
	}
}

func TestNewRejectsInvalidGraphs(t *testing.T) {
	cases := []struct {
		name string
		def  Definition
		want error
	}{
		{
			name: "cycle",
			def: Definition{Skills: []types.SkillDefinition{
				{ID: "a", MasteryThreshold: 0.5, PrerequisiteFor: []string{"b"}},
				{ID: "b", MasteryThreshold: 0.5, PrerequisiteFor: []string{"c"}},
				{ID: "c", MasteryThreshold: 0.5, PrerequisiteFor: []string{"a"}},
			}},
			want: types.ErrCyclicGraph,
		},
		{
			name: "self edge",
			def:  Definition{Skills: []types.SkillDefinition{{ID: "a", MasteryThreshold: 0.5, PrerequisiteFor: []string{"a"}}}},
			want: types.ErrCyclicGraph,
		},
		{
			name: "threshold zero",
			def:  Definition{Skills: []types.SkillDefinition{{ID: "a", MasteryThreshold: 0}}},
			want: types.ErrInvalidGraph,
		},
		{
			name: "dangling edge",
			def:  Definition{Skills: []types.SkillDefinition{{ID: "a", MasteryThreshold: 0.5, PrerequisiteFor: []string{"ghost"}}}},
			want: types.ErrInvalidGraph,
		},
		{
			name: "duplicate skill",
			def:  Definition{Skills: []types.SkillDefinition{{ID: "a", MasteryThreshold: 0.5}, {ID: "a", MasteryThreshold: 0.6}}},
			want: types.ErrInvalidGraph,
		},
		{
			name: "module unknown skill",
			def: Definition{
				Skills:  []types.SkillDefinition{{ID: "a", MasteryThreshold: 0.5}},
				Modules: []types.ModuleDefinition{{ID: "m", RequiredSkills: []string{"b"}}},
			},
			want: types.ErrInvalidGraph,
		},
		{
			name: "module custom level without threshold",
			def: Definition{
				Skills: []types.SkillDefinition{{ID: "a", MasteryThreshold: 0.5}},
				Modules: []types.ModuleDefinition{{ID: "m", Requirements: map[types.Level][]types.SkillRequirement{
					"lunar": {{SkillID: "a"}},
				}}},
			},
			want: types.ErrInvalidGraph,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.def); !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
		})
	}
}

func TestFileSourceParsesYAML(t *testing.T) {
	doc := `
skills:
  - id: suit_check
    display_name: Suit integrity check
    mastery_threshold: 0.8
    prerequisite_for: [tether_ops]
  - id: tether_ops
    mastery_threshold: 0.75
modules:
  - id: eva_intro
    required_skills: [suit_check]
    requirements:
      zero_g:
        - skill_id: tether_ops
          threshold: 0.9
`
	path := filepath.Join(t.TempDir(), "graph.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	g, err := Build(context.Background(), FileSource{Path: path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s, _ := g.Skill("suit_check")
	if s.DisplayName != "Suit integrity check" {
		t.Fatalf("display name=%q", s.DisplayName)
	}
	reqs, err := g.Requirements("eva_intro", types.LevelZeroG)
	if err != nil || len(reqs) != 2 {
		t.Fatalf("reqs=%v err=%v", reqs, err)
	}

	if _, err := Parse([]byte("skills:\n  - id: a\n    colour: red\n")); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestShippedSkillGraphIsValid(t *testing.T) {
	g, err := Build(context.Background(), FileSource{Path: filepath.Join("..", "..", "..", "config", "skill_graph.yaml")})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	reqs, err := g.Requirements("eva_operations", types.LevelZeroG)
	if err != nil {
		t.Fatalf("Requirements: %v", err)
	}
	if len(reqs) != 3 {
		t.Fatalf("zero_g requirements=%+v", reqs)
	}
	if got := g.ModulesRequiring("suit_systems"); len(got) != 2 {
		t.Fatalf("modules requiring suit_systems=%v", got)
	}
}

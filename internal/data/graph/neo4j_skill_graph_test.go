package graph

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/skillgraph"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/platform/neo4jdb"
)

func TestSkillsFromRows(t *testing.T) {
	got, err := SkillsFromRows([]map[string]any{
		{"id": "eva_suit", "display_name": "EVA suit", "mastery_threshold": 0.8, "prerequisite_for": []any{"tethering", "airlock"}},
		{"id": "tethering", "display_name": nil, "mastery_threshold": int64(1), "prerequisite_for": []any{}},
	})
	if err != nil {
		t.Fatalf("SkillsFromRows: %v", err)
	}
	want := []types.SkillDefinition{
		{ID: "eva_suit", DisplayName: "EVA suit", MasteryThreshold: 0.8, PrerequisiteFor: []string{"airlock", "tethering"}},
		{ID: "tethering", MasteryThreshold: 1, PrerequisiteFor: []string{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("skills (-want +got):\n%s", diff)
	}

	if _, err := SkillsFromRows([]map[string]any{{"id": "x"}}); !errors.Is(err, types.ErrInvalidGraph) {
		t.Fatalf("missing threshold err=%v", err)
	}
}

func TestModulesFromRows(t *testing.T) {
	got, err := ModulesFromRows([]map[string]any{{
		"id":                    "eva",
		"display_name":          "EVA",
		"level_thresholds_json": `{"zero_g":0.92}`,
		"requires": []any{
			map[string]any{"skill_id": "tethering", "level": nil, "threshold": 0.0},
			map[string]any{"skill_id": "eva_suit", "level": nil, "threshold": 0.0},
			map[string]any{"skill_id": "eva_suit", "level": "expert", "threshold": 0.97},
			nil,
		},
	}})
	if err != nil {
		t.Fatalf("ModulesFromRows: %v", err)
	}
	want := []types.ModuleDefinition{{
		ID:              "eva",
		DisplayName:     "EVA",
		RequiredSkills:  []string{"eva_suit", "tethering"},
		Requirements:    map[types.Level][]types.SkillRequirement{types.LevelExpert: {{SkillID: "eva_suit", Threshold: 0.97}}},
		LevelThresholds: map[types.Level]float64{types.LevelZeroG: 0.92},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("modules (-want +got):\n%s", diff)
	}

	if _, err := ModulesFromRows([]map[string]any{{"id": "m", "level_thresholds_json": "{"}}); !errors.Is(err, types.ErrInvalidGraph) {
		t.Fatalf("bad json err=%v", err)
	}
}

func TestModuleParamsRoundTrip(t *testing.T) {
	def := skillgraph.Definition{Modules: []types.ModuleDefinition{{
		ID:             "eva",
		RequiredSkills: []string{"a"},
		Requirements:   map[types.Level][]types.SkillRequirement{types.LevelBasics: {{SkillID: "b", Threshold: 0.6}}},
	}}}
	nodes, rels := moduleParams(def)
	if len(nodes) != 1 || len(rels) != 2 {
		t.Fatalf("nodes=%v rels=%v", nodes, rels)
	}
	reqs := make([]any, 0, len(rels))
	for _, r := range rels {
		reqs = append(reqs, map[string]any{"skill_id": r["skill_id"], "level": r["level"], "threshold": r["threshold"]})
	}
	got, err := ModulesFromRows([]map[string]any{{"id": "eva", "requires": reqs}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(def.Modules, got); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestNeo4jSkillGraphIntegration(t *testing.T) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := neo4jdb.New(ctx, neo4jdb.Options{URI: uri, User: os.Getenv("NEO4J_USER"), Password: os.Getenv("NEO4J_PASSWORD")}, logger.Nop())
	if err != nil {
		t.Fatalf("neo4j: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	def := skillgraph.Definition{
		Skills: []types.SkillDefinition{
			{ID: "it_a", MasteryThreshold: 0.8, PrerequisiteFor: []string{"it_b"}},
			{ID: "it_b", MasteryThreshold: 0.7, PrerequisiteFor: []string{}},
		},
		Modules: []types.ModuleDefinition{{ID: "it_mod", RequiredSkills: []string{"it_a"}}},
	}
	if err := SyncSkillGraph(ctx, client, logger.Nop(), def); err != nil {
		t.Fatalf("SyncSkillGraph: %v", err)
	}
	src, _ := NewNeo4jSkillGraphSource(client, logger.Nop())
	g, err := skillgraph.Build(ctx, src)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !g.HasSkill("it_a") || len(g.ModulesRequiring("it_a")) == 0 {
		t.Fatalf("graph missing synced data")
	}
}

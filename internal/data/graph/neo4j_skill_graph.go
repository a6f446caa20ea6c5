package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/skillgraph"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/platform/neo4jdb"
)

// Skill graph layout:
//
//	(:Skill {id, display_name, mastery_threshold})-[:PREREQUISITE_FOR]->(:Skill)
//	(:Module {id, display_name, level_thresholds_json})-[:REQUIRES {level, threshold}]->(:Skill)
//
// A REQUIRES edge without a level applies to every level.

const skillQuery = `
MATCH (s:Skill)
OPTIONAL MATCH (s)-[:PREREQUISITE_FOR]->(t:Skill)
RETURN s.id AS id, s.display_name AS display_name, s.mastery_threshold AS mastery_threshold,
       collect(t.id) AS prerequisite_for
ORDER BY id
`

const moduleQuery = `
MATCH (m:Module)
OPTIONAL MATCH (m)-[r:REQUIRES]->(s:Skill)
RETURN m.id AS id, m.display_name AS display_name, m.level_thresholds_json AS level_thresholds_json,
       collect(CASE WHEN s IS NULL THEN NULL ELSE {skill_id: s.id, level: r.level, threshold: r.threshold} END) AS requires
ORDER BY id
`

// Neo4jSkillGraphSource reads the skill graph from Neo4j.
type Neo4jSkillGraphSource struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewNeo4jSkillGraphSource(client *neo4jdb.Client, log *logger.Logger) (*Neo4jSkillGraphSource, error) {
	if client == nil || client.Driver == nil {
		return nil, fmt.Errorf("neo4j client required")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Neo4jSkillGraphSource{client: client, log: log.With("source", "Neo4jSkillGraph")}, nil
}

func (s *Neo4jSkillGraphSource) Load(ctx context.Context) (skillgraph.Definition, error) {
	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		skillRows, err := collectRows(ctx, tx, skillQuery)
		if err != nil {
			return nil, err
		}
		moduleRows, err := collectRows(ctx, tx, moduleQuery)
		if err != nil {
			return nil, err
		}
		return [2][]map[string]any{skillRows, moduleRows}, nil
	})
	if err != nil {
		return skillgraph.Definition{}, types.Unavailable(fmt.Errorf("neo4j skill graph: %w", err))
	}
	rows := out.([2][]map[string]any)

	skills, err := SkillsFromRows(rows[0])
	if err != nil {
		return skillgraph.Definition{}, err
	}
	modules, err := ModulesFromRows(rows[1])
	if err != nil {
		return skillgraph.Definition{}, err
	}
	s.log.Debug("skill graph loaded", "skills", len(skills), "modules", len(modules))
	return skillgraph.Definition{Skills: skills, Modules: modules}, nil
}

func collectRows(ctx context.Context, tx neo4j.ManagedTransaction, cypher string) ([]map[string]any, error) {
	res, err := tx.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	recs, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.AsMap())
	}
	return out, nil
}

// SkillsFromRows maps skillQuery rows.
func SkillsFromRows(rows []map[string]any) ([]types.SkillDefinition, error) {
	out := make([]types.SkillDefinition, 0, len(rows))
	for _, row := range rows {
		id := asString(row["id"])
		if id == "" {
			return nil, fmt.Errorf("%w: skill node without id", types.ErrInvalidGraph)
		}
		th, ok := asFloat(row["mastery_threshold"])
		if !ok {
			return nil, fmt.Errorf("%w: skill %q has no mastery_threshold", types.ErrInvalidGraph, id)
		}
		out = append(out, types.SkillDefinition{
			ID:               id,
			DisplayName:      asString(row["display_name"]),
			MasteryThreshold: th,
			PrerequisiteFor:  asStrings(row["prerequisite_for"]),
		})
	}
	return out, nil
}

// ModulesFromRows maps moduleQuery rows.
func ModulesFromRows(rows []map[string]any) ([]types.ModuleDefinition, error) {
	out := make([]types.ModuleDefinition, 0, len(rows))
	for _, row := range rows {
		id := asString(row["id"])
		if id == "" {
			return nil, fmt.Errorf("%w: module node without id", types.ErrInvalidGraph)
		}
		m := types.ModuleDefinition{ID: id, DisplayName: asString(row["display_name"])}

		if raw := asString(row["level_thresholds_json"]); raw != "" {
			if err := json.Unmarshal([]byte(raw), &m.LevelThresholds); err != nil {
				return nil, fmt.Errorf("%w: module %q level_thresholds_json: %v", types.ErrInvalidGraph, id, err)
			}
		}

		reqs, _ := row["requires"].([]any)
		for _, r := range reqs {
			rm, ok := r.(map[string]any)
			if !ok {
				continue
			}
			skill := asString(rm["skill_id"])
			if skill == "" {
				continue
			}
			level := types.Level(asString(rm["level"]))
			if level == "" {
				m.RequiredSkills = append(m.RequiredSkills, skill)
				continue
			}
			th, _ := asFloat(rm["threshold"])
			if m.Requirements == nil {
				m.Requirements = map[types.Level][]types.SkillRequirement{}
			}
			m.Requirements[level] = append(m.Requirements[level], types.SkillRequirement{SkillID: skill, Threshold: th})
		}
		sort.Strings(m.RequiredSkills)
		for lvl := range m.Requirements {
			rs := m.Requirements[lvl]
			sort.Slice(rs, func(i, j int) bool { return rs[i].SkillID < rs[j].SkillID })
		}
		out = append(out, m)
	}
	return out, nil
}

// SyncSkillGraph writes def into Neo4j, replacing edges of the nodes it touches.
func SyncSkillGraph(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, def skillgraph.Definition) error {
	if client == nil || client.Driver == nil {
		return fmt.Errorf("neo4j client required")
	}
	skills, prereqs := skillParams(def)
	modules, requires := moduleParams(def)

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	if res, err := session.Run(ctx, `CREATE CONSTRAINT skill_id_unique IF NOT EXISTS FOR (s:Skill) REQUIRE s.id IS UNIQUE`, nil); err != nil {
		if log != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		steps := []struct {
			cypher string
			params map[string]any
		}{
			{`
UNWIND $skills AS n
MERGE (s:Skill {id: n.id})
SET s.display_name = n.display_name, s.mastery_threshold = n.mastery_threshold
WITH s
OPTIONAL MATCH (s)-[e:PREREQUISITE_FOR]->()
DELETE e
`, map[string]any{"skills": skills}},
			{`
UNWIND $rels AS r
MATCH (a:Skill {id: r.from_id})
MATCH (b:Skill {id: r.to_id})
MERGE (a)-[:PREREQUISITE_FOR]->(b)
`, map[string]any{"rels": prereqs}},
			{`
UNWIND $modules AS n
MERGE (m:Module {id: n.id})
SET m.display_name = n.display_name, m.level_thresholds_json = n.level_thresholds_json
WITH m
OPTIONAL MATCH (m)-[e:REQUIRES]->()
DELETE e
`, map[string]any{"modules": modules}},
			{`
UNWIND $rels AS r
MATCH (m:Module {id: r.module_id})
MATCH (s:Skill {id: r.skill_id})
CREATE (m)-[:REQUIRES {level: r.level, threshold: r.threshold}]->(s)
`, map[string]any{"rels": requires}},
		}
		for _, st := range steps {
			res, err := tx.Run(ctx, st.cypher, st.params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return types.Unavailable(fmt.Errorf("neo4j skill graph sync: %w", err))
	}
	if log != nil {
		log.Info("skill graph synced to neo4j", "skills", len(skills), "modules", len(modules))
	}
	return nil
}

func skillParams(def skillgraph.Definition) (nodes, rels []map[string]any) {
	for _, s := range def.Skills {
		nodes = append(nodes, map[string]any{
			"id":                s.ID,
			"display_name":      s.DisplayName,
			"mastery_threshold": s.MasteryThreshold,
		})
		for _, to := range s.PrerequisiteFor {
			rels = append(rels, map[string]any{"from_id": s.ID, "to_id": to})
		}
	}
	return nodes, rels
}

func moduleParams(def skillgraph.Definition) (nodes, rels []map[string]any) {
	for _, m := range def.Modules {
		lt := ""
		if len(m.LevelThresholds) > 0 {
			b, _ := json.Marshal(m.LevelThresholds)
			lt = string(b)
		}
		nodes = append(nodes, map[string]any{"id": m.ID, "display_name": m.DisplayName, "level_thresholds_json": lt})
		for _, s := range m.RequiredSkills {
			rels = append(rels, map[string]any{"module_id": m.ID, "skill_id": s, "level": nil, "threshold": 0.0})
		}
		levels := make([]string, 0, len(m.Requirements))
		for lvl := range m.Requirements {
			levels = append(levels, string(lvl))
		}
		sort.Strings(levels)
		for _, lvl := range levels {
			for _, r := range m.Requirements[types.Level(lvl)] {
				rels = append(rels, map[string]any{"module_id": m.ID, "skill_id": r.SkillID, "level": lvl, "threshold": r.Threshold})
			}
		}
	}
	return nodes, rels
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

func asStrings(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, x := range list {
		if s := asString(x); s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

package skillgraph

import (
	"fmt"
	"math"
	"sort"
	"strings"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

// Definition is the raw static input a Source produces.
type Definition struct {
	Skills  []types.SkillDefinition  `json:"skills" yaml:"skills"`
	Modules []types.ModuleDefinition `json:"modules" yaml:"modules"`
}

// Graph is the validated, read-only prerequisite DAG plus module gates.
// It is safe for concurrent use once built.
type Graph struct {
	skills         map[string]types.SkillDefinition
	skillOrder     []string
	modules        map[string]types.ModuleDefinition
	moduleOrder    []string
	modulesBySkill map[string][]string
}

func New(def Definition) (*Graph, error) {
	g := &Graph{
		skills:         make(map[string]types.SkillDefinition, len(def.Skills)),
		modules:        make(map[string]types.ModuleDefinition, len(def.Modules)),
		modulesBySkill: map[string][]string{},
	}
	for _, s := range def.Skills {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return nil, fmt.Errorf("%w: skill with empty id", types.ErrInvalidGraph)
		}
		if _, dup := g.skills[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate skill %q", types.ErrInvalidGraph, s.ID)
		}
		if math.IsNaN(s.MasteryThreshold) || s.MasteryThreshold <= 0 || s.MasteryThreshold > 1 {
			return nil, fmt.Errorf("%w: skill %q mastery_threshold %v outside (0,1]", types.ErrInvalidGraph, s.ID, s.MasteryThreshold)
		}
		if strings.TrimSpace(s.DisplayName) == "" {
			s.DisplayName = s.ID
		}
		s.PrerequisiteFor = normalizeIDs(s.PrerequisiteFor)
		g.skills[s.ID] = s
		g.skillOrder = append(g.skillOrder, s.ID)
	}
	sort.Strings(g.skillOrder)

	for _, id := range g.skillOrder {
		for _, dep := range g.skills[id].PrerequisiteFor {
			if dep == id {
				return nil, fmt.Errorf("%w: skill %q lists itself", types.ErrCyclicGraph, id)
			}
			if _, ok := g.skills[dep]; !ok {
				return nil, fmt.Errorf("%w: skill %q is prerequisite for unknown skill %q", types.ErrInvalidGraph, id, dep)
			}
		}
	}
	if cycle := g.findCycle(); len(cycle) > 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrCyclicGraph, strings.Join(cycle, " -> "))
	}

	for _, m := range def.Modules {
		if err := g.addModule(m); err != nil {
			return nil, err
		}
	}
	sort.Strings(g.moduleOrder)
	for skillID := range g.modulesBySkill {
		sort.Strings(g.modulesBySkill[skillID])
	}
	return g, nil
}

func (g *Graph) addModule(m types.ModuleDefinition) error {
	m.ID = strings.TrimSpace(m.ID)
	if m.ID == "" {
		return fmt.Errorf("%w: module with empty id", types.ErrInvalidGraph)
	}
	if _, dup := g.modules[m.ID]; dup {
		return fmt.Errorf("%w: duplicate module %q", types.ErrInvalidGraph, m.ID)
	}
	if strings.TrimSpace(m.DisplayName) == "" {
		m.DisplayName = m.ID
	}
	m.RequiredSkills = normalizeIDs(m.RequiredSkills)
	for level, th := range m.LevelThresholds {
		if math.IsNaN(th) || th <= 0 || th > 1 {
			return fmt.Errorf("%w: module %q level %q threshold %v outside (0,1]", types.ErrInvalidGraph, m.ID, level, th)
		}
	}

	touched := map[string]bool{}
	for _, id := range m.RequiredSkills {
		if _, ok := g.skills[id]; !ok {
			return fmt.Errorf("%w: module %q requires unknown skill %q", types.ErrInvalidGraph, m.ID, id)
		}
		touched[id] = true
	}
	for level, reqs := range m.Requirements {
		for i := range reqs {
			reqs[i].SkillID = strings.TrimSpace(reqs[i].SkillID)
			r := reqs[i]
			if _, ok := g.skills[r.SkillID]; !ok {
				return fmt.Errorf("%w: module %q level %q requires unknown skill %q", types.ErrInvalidGraph, m.ID, level, r.SkillID)
			}
			if math.IsNaN(r.Threshold) || r.Threshold < 0 || r.Threshold > 1 {
				return fmt.Errorf("%w: module %q skill %q threshold %v outside [0,1]", types.ErrInvalidGraph, m.ID, r.SkillID, r.Threshold)
			}
			touched[r.SkillID] = true
		}
		if _, ok := g.levelThreshold(m, level); !ok {
			return fmt.Errorf("%w: module %q uses level %q without a threshold", types.ErrInvalidGraph, m.ID, level)
		}
	}

	g.modules[m.ID] = m
	g.moduleOrder = append(g.moduleOrder, m.ID)
	for id := range touched {
		g.modulesBySkill[id] = append(g.modulesBySkill[id], m.ID)
	}
	return nil
}

// findCycle returns one cycle as a path of skill ids, or nil.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.skills))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = grey
		stack = append(stack, id)
		for _, next := range g.skills[id].PrerequisiteFor {
			switch color[next] {
			case grey:
				for i, s := range stack {
					if s == next {
						cycle = append(append([]string{}, stack[i:]...), next)
						break
					}
				}
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range g.skillOrder {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}

func (g *Graph) Skill(id string) (types.SkillDefinition, bool) {
	s, ok := g.skills[strings.TrimSpace(id)]
	return s, ok
}

func (g *Graph) HasSkill(id string) bool {
	_, ok := g.skills[strings.TrimSpace(id)]
	return ok
}

// Skills returns all skills ordered by id.
func (g *Graph) Skills() []types.SkillDefinition {
	out := make([]types.SkillDefinition, 0, len(g.skillOrder))
	for _, id := range g.skillOrder {
		out = append(out, g.skills[id])
	}
	return out
}

func (g *Graph) Module(id string) (types.ModuleDefinition, bool) {
	m, ok := g.modules[strings.TrimSpace(id)]
	return m, ok
}

// Modules returns all modules ordered by id.
func (g *Graph) Modules() []types.ModuleDefinition {
	out := make([]types.ModuleDefinition, 0, len(g.moduleOrder))
	for _, id := range g.moduleOrder {
		out = append(out, g.modules[id])
	}
	return out
}

// ModulesRequiring lists modules gated on skillID at any level.
func (g *Graph) ModulesRequiring(skillID string) []string {
	ids := g.modulesBySkill[strings.TrimSpace(skillID)]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Requirements resolves the gated skills of a module at a level, with every
// threshold filled in. Explicit per-level requirements win over RequiredSkills.
func (g *Graph) Requirements(moduleID string, level types.Level) ([]types.SkillRequirement, error) {
	m, ok := g.Module(moduleID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownModule, moduleID)
	}
	levelTh, ok := g.levelThreshold(m, level)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownLevel, level)
	}

	byID := map[string]float64{}
	for _, id := range m.RequiredSkills {
		byID[id] = levelTh
	}
	for _, r := range m.Requirements[level] {
		th := r.Threshold
		if th == 0 {
			th = levelTh
		}
		byID[r.SkillID] = th
	}

	out := make([]types.SkillRequirement, 0, len(byID))
	for id, th := range byID {
		out = append(out, types.SkillRequirement{SkillID: id, Threshold: th})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out, nil
}

func (g *Graph) levelThreshold(m types.ModuleDefinition, level types.Level) (float64, bool) {
	if th, ok := m.LevelThresholds[level]; ok {
		return th, true
	}
	th, ok := types.DefaultLevelThresholds[level]
	return th, ok
}

// Definition exports the graph in its source shape.
func (g *Graph) Definition() Definition {
	return Definition{Skills: g.Skills(), Modules: g.Modules()}
}

func normalizeIDs(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

package readiness

import (
	"context"
	"fmt"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/skillgraph"
)

type MasterySource interface {
	Snapshot(ctx context.Context, userID string) (map[string]float64, error)
}

// Gate evaluates module unlock eligibility from current mastery. Nothing is
// cached: every call reads the store again.
type Gate struct {
	graph *skillgraph.Graph
	store MasterySource
}

func NewGate(graph *skillgraph.Graph, store MasterySource) (*Gate, error) {
	if graph == nil || store == nil {
		return nil, fmt.Errorf("readiness: graph and store required")
	}
	return &Gate{graph: graph, store: store}, nil
}

func (g *Gate) Check(ctx context.Context, userID, moduleID string, level types.Level) (types.Readiness, error) {
	reqs, err := g.graph.Requirements(moduleID, level)
	if err != nil {
		return types.Readiness{}, err
	}
	probs, err := g.store.Snapshot(ctx, userID)
	if err != nil {
		return types.Readiness{}, err
	}
	return Evaluate(moduleID, level, reqs, probs), nil
}

// CheckAll evaluates several modules at one level against a single snapshot.
func (g *Gate) CheckAll(ctx context.Context, userID string, moduleIDs []string, level types.Level) ([]types.Readiness, error) {
	if len(moduleIDs) == 0 {
		return []types.Readiness{}, nil
	}
	probs, err := g.store.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Readiness, 0, len(moduleIDs))
	for _, id := range moduleIDs {
		reqs, err := g.graph.Requirements(id, level)
		if err != nil {
			return nil, err
		}
		out = append(out, Evaluate(id, level, reqs, probs))
	}
	return out, nil
}

// Evaluate is the pure readiness rule. Absent skills count as probability 0.
func Evaluate(moduleID string, level types.Level, reqs []types.SkillRequirement, probs map[string]float64) types.Readiness {
	r := types.Readiness{
		ModuleID:     moduleID,
		Level:        level,
		Missing:      []string{},
		Requirements: make([]types.RequirementStatus, 0, len(reqs)),
	}
	for _, req := range reqs {
		p := probs[req.SkillID]
		met := p >= req.Threshold
		r.Requirements = append(r.Requirements, types.RequirementStatus{
			SkillID:     req.SkillID,
			Probability: p,
			Required:    req.Threshold,
			Met:         met,
		})
		if !met {
			r.Missing = append(r.Missing, req.SkillID)
		}
	}
	r.Ready = len(r.Missing) == 0
	return r
}

package gaps

import (
	"context"
	"fmt"
	"math"
	"sort"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/skillgraph"
)

// MasterySource is the read side of the knowledge store.
type MasterySource interface {
	Snapshot(ctx context.Context, userID string) (map[string]float64, error)
}

type Analyzer struct {
	graph *skillgraph.Graph
	store MasterySource
}

func NewAnalyzer(graph *skillgraph.Graph, store MasterySource) (*Analyzer, error) {
	if graph == nil || store == nil {
		return nil, fmt.Errorf("gaps: graph and store required")
	}
	return &Analyzer{graph: graph, store: store}, nil
}

// IdentifyGaps lists every skill below its mastery threshold, most urgent first.
// Skills the learner has never been observed on count as probability 0.
func (a *Analyzer) IdentifyGaps(ctx context.Context, userID string) ([]types.KnowledgeGap, error) {
	probs, err := a.store.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Rank(a.graph.Skills(), probs), nil
}

// Rank is the pure part of IdentifyGaps.
func Rank(skills []types.SkillDefinition, probs map[string]float64) []types.KnowledgeGap {
	out := []types.KnowledgeGap{}
	for _, s := range skills {
		p := probs[s.ID]
		if p >= s.MasteryThreshold {
			continue
		}
		gap := roundGap(s.MasteryThreshold - p)
		out = append(out, types.KnowledgeGap{
			SkillID:          s.ID,
			DisplayName:      s.DisplayName,
			Probability:      p,
			Threshold:        s.MasteryThreshold,
			Gap:              gap,
			ProficiencyLabel: Proficiency(p),
			PriorityTier:     Tier(gap, s.IsPrerequisite()),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].PriorityTier.Rank(), out[j].PriorityTier.Rank()
		if ri != rj {
			return ri < rj
		}
		if out[i].Gap != out[j].Gap {
			return out[i].Gap > out[j].Gap
		}
		return out[i].SkillID < out[j].SkillID
	})
	return out
}

// roundGap drops float noise so 0.9-0.7 compares as 0.2 against the tier cutoffs.
func roundGap(g float64) float64 {
	return math.Round(g*1e9) / 1e9
}

func Tier(gap float64, isPrerequisite bool) types.PriorityTier {
	switch {
	case gap > 0.5 && isPrerequisite:
		return types.PriorityCritical
	case gap > 0.3 || isPrerequisite:
		return types.PriorityHigh
	case gap > 0.2:
		return types.PriorityMedium
	default:
		return types.PriorityLow
	}
}

func Proficiency(p float64) types.ProficiencyLabel {
	switch {
	case p < 0.3:
		return types.ProficiencyBeginner
	case p < 0.6:
		return types.ProficiencyIntermediate
	case p < 0.8:
		return types.ProficiencyAdvanced
	default:
		return types.ProficiencyExpert
	}
}

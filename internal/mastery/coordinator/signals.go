package coordinator

import (
	"fmt"
	"math"
	"strings"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

// Metrics are the caller-reported performance signals for one outcome.
type Metrics struct {
	CompletionRate float64 `json:"completion_rate"`
	Effectiveness  float64 `json:"effectiveness"`
	ErrorCount     int     `json:"error_count,omitempty"`
	Streak         int     `json:"streak,omitempty"`
	Phase          string  `json:"phase,omitempty"`
	DurationSec    float64 `json:"duration_sec,omitempty"`
}

// RewardFunc scores an outcome for the policy.
type RewardFunc func(o Outcome) float64

// StateInput is everything a StateFunc may look at.
type StateInput struct {
	SkillProbability  float64
	ModuleProbability float64
	Streak            int
	Phase             string
}

// StateFunc discretises StateInput into a policy key. It must be pure.
type StateFunc func(in StateInput) types.DecisionState

// DefaultReward maps completion and effectiveness onto [-1,1], with a small
// penalty per reported error.
func DefaultReward(o Outcome) float64 {
	m := o.Metrics
	score := 0.5*clamp01(m.CompletionRate) + 0.5*clamp01(m.Effectiveness)
	score -= 0.05 * float64(max(m.ErrorCount, 0))
	return clamp(2*score-1, -1, 1)
}

// DefaultState buckets skill and module mastery into fifths, the streak into
// four bands, and appends the phase.
func DefaultState(in StateInput) types.DecisionState {
	phase := strings.ToLower(strings.TrimSpace(in.Phase))
	if phase == "" {
		phase = "train"
	}
	return types.DecisionState(fmt.Sprintf("s%d|m%d|k%d|%s",
		masteryBucket(in.SkillProbability),
		masteryBucket(in.ModuleProbability),
		streakBucket(in.Streak),
		phase,
	))
}

func masteryBucket(p float64) int {
	b := int(math.Floor(clamp01(p) * 5))
	if b > 4 {
		b = 4
	}
	return b
}

func streakBucket(n int) int {
	switch {
	case n <= 0:
		return 0
	case n <= 2:
		return 1
	case n <= 5:
		return 2
	default:
		return 3
	}
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package outcomeflow

import (
	"strings"
	"time"

	"github.com/yungbote/neurobridge-mastery/internal/mastery/coordinator"
)

const (
	WorkflowName    = "mastery_outcomes"
	ActivityProcess = "mastery_process_outcome"
	SignalOutcome   = "outcome"
)

// Input starts (or continues) the per-scope outcome workflow.
type Input struct {
	UserID      string                `json:"user_id"`
	ModuleID    string                `json:"module_id"`
	IdleTimeout time.Duration         `json:"idle_timeout"`
	MaxOutcomes int                   `json:"max_outcomes"`
	Pending     []coordinator.Outcome `json:"pending,omitempty"`
}

func (in Input) withDefaults() Input {
	if in.IdleTimeout <= 0 {
		in.IdleTimeout = 10 * time.Minute
	}
	if in.MaxOutcomes <= 0 {
		in.MaxOutcomes = 500
	}
	return in
}

// WorkflowID is one workflow per learner and module, so outcomes for a scope
// are processed strictly in arrival order.
func WorkflowID(userID, moduleID string) string {
	return "mastery-outcome:" + strings.TrimSpace(userID) + ":" + strings.TrimSpace(moduleID)
}

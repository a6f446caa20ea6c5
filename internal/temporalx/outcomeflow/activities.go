package outcomeflow

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/temporal"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/coordinator"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type OutcomeProcessor interface {
	ProcessOutcome(ctx context.Context, in coordinator.Outcome) (coordinator.Feedback, error)
}

type Activities struct {
	Log     *logger.Logger
	Mastery OutcomeProcessor
}

func (a *Activities) Process(ctx context.Context, o coordinator.Outcome) (coordinator.Feedback, error) {
	if a == nil || a.Mastery == nil {
		return coordinator.Feedback{}, fmt.Errorf("outcomeflow: activity not configured")
	}
	fb, err := a.Mastery.ProcessOutcome(ctx, o)
	if err == nil {
		return fb, nil
	}
	if a.Log != nil {
		a.Log.Warn("async outcome failed", "user_id", o.UserID, "module_id", o.ModuleID, "skill_id", o.SkillID, "error", err)
	}
	if types.IsCallerError(err) {
		return fb, temporal.NewNonRetryableApplicationError(err.Error(), "caller_error", err)
	}
	return fb, err
}

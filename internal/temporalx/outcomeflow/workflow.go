package outcomeflow

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/neurobridge-mastery/internal/mastery/coordinator"
)

const continueHistoryLimit = 15000

func Workflow(ctx workflow.Context, in Input) error {
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.ModuleID) == "" {
		return fmt.Errorf("outcomeflow: missing user or module")
	}
	in = in.withDefaults()

	// Outcomes are not idempotent, so a failed attempt is not replayed.
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	log := workflow.GetLogger(ctx)
	ch := workflow.GetSignalChannel(ctx, SignalOutcome)

	queue := append([]coordinator.Outcome(nil), in.Pending...)
	processed := 0
	for {
		for len(queue) > 0 {
			o := queue[0]
			queue = queue[1:]

			var fb coordinator.Feedback
			if err := workflow.ExecuteActivity(ctx, ActivityProcess, o).Get(ctx, &fb); err != nil {
				log.Warn("outcome processing failed", "skill_id", o.SkillID, "error", err)
			}
			processed++

			if shouldContinueAsNew(ctx, processed, in.MaxOutcomes, continueHistoryLimit) {
				next := in
				next.Pending = drain(ch, queue)
				return workflow.NewContinueAsNewError(ctx, Workflow, next)
			}
		}

		idle := waitForOutcome(ctx, ch, in.IdleTimeout, &queue)
		if idle {
			queue = drain(ch, queue)
			if len(queue) == 0 {
				return nil
			}
		}
	}
}

// waitForOutcome blocks until a signal arrives or the idle timer fires. It
// reports whether the timer won.
func waitForOutcome(ctx workflow.Context, ch workflow.ReceiveChannel, idle time.Duration, queue *[]coordinator.Outcome) bool {
	timerCtx, cancel := workflow.WithCancel(ctx)
	defer cancel()
	timer := workflow.NewTimer(timerCtx, idle)

	timedOut := false
	sel := workflow.NewSelector(ctx)
	sel.AddReceive(ch, func(c workflow.ReceiveChannel, more bool) {
		var o coordinator.Outcome
		c.Receive(ctx, &o)
		*queue = append(*queue, o)
	})
	sel.AddFuture(timer, func(f workflow.Future) { timedOut = true })
	sel.Select(ctx)
	return timedOut
}

func drain(ch workflow.ReceiveChannel, queue []coordinator.Outcome) []coordinator.Outcome {
	for {
		var o coordinator.Outcome
		if !ch.ReceiveAsync(&o) {
			return queue
		}
		queue = append(queue, o)
	}
}

func shouldContinueAsNew(ctx workflow.Context, n int, maxN int, maxHistory int) bool {
	if maxN > 0 && n >= maxN {
		return true
	}
	info := workflow.GetInfo(ctx)
	if info == nil || maxHistory <= 0 {
		return false
	}
	return info.GetCurrentHistoryLength() >= maxHistory
}

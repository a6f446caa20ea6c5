package outcomeflow

import (
	"context"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/neurobridge-mastery/internal/mastery/coordinator"
)

// Dispatcher hands outcomes to the per-scope workflow, starting it if needed.
type Dispatcher struct {
	tc          temporalsdkclient.Client
	taskQueue   string
	idleTimeout time.Duration
	maxOutcomes int
}

func NewDispatcher(tc temporalsdkclient.Client, taskQueue string, idleTimeout time.Duration, maxOutcomes int) (*Dispatcher, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	return &Dispatcher{tc: tc, taskQueue: taskQueue, idleTimeout: idleTimeout, maxOutcomes: maxOutcomes}, nil
}

// Submit returns the workflow id and run id that will process the outcome.
func (d *Dispatcher) Submit(ctx context.Context, o coordinator.Outcome) (string, string, error) {
	id := WorkflowID(o.UserID, o.ModuleID)
	run, err := d.tc.SignalWithStartWorkflow(ctx, id, SignalOutcome, o,
		temporalsdkclient.StartWorkflowOptions{ID: id, TaskQueue: d.taskQueue},
		WorkflowName,
		Input{UserID: o.UserID, ModuleID: o.ModuleID, IdleTimeout: d.idleTimeout, MaxOutcomes: d.maxOutcomes},
	)
	if err != nil {
		return id, "", fmt.Errorf("signal-with-start %s: %w", id, err)
	}
	return id, run.GetRunID(), nil
}

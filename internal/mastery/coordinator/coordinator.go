package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/skillgraph"
	"github.com/yungbote/neurobridge-mastery/internal/platform/keylock"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type KnowledgeStore interface {
	Observe(ctx context.Context, userID, skillID string, successRate float64, at time.Time) (types.SkillState, error)
	Snapshot(ctx context.Context, userID string) (map[string]float64, error)
}

type GapAnalyzer interface {
	IdentifyGaps(ctx context.Context, userID string) ([]types.KnowledgeGap, error)
}

type ReadinessGate interface {
	CheckAll(ctx context.Context, userID string, moduleIDs []string, level types.Level) ([]types.Readiness, error)
}

type PolicyEngine interface {
	SelectAction(ctx context.Context, scope types.Scope, state types.DecisionState, available []types.Action, epsilon float64) (types.Action, error)
	Update(ctx context.Context, scope types.Scope, state types.DecisionState, action types.Action, reward float64, next types.DecisionState, nextAvailable []types.Action) (types.QEntry, error)
}

type UnlockPublisher interface {
	Publish(ctx context.Context, ev types.ModuleUnlock) error
}

type Deps struct {
	Graph     *skillgraph.Graph
	Store     KnowledgeStore
	Gaps      GapAnalyzer
	Readiness ReadinessGate
	Policy    PolicyEngine
	Decisions repos.DecisionMemoryRepo
	Traces    repos.OutcomeTraceRepo
	Locker    keylock.Locker
	Publisher UnlockPublisher
	Log       *logger.Logger
}

type Options struct {
	Epsilon float64
	Reward  RewardFunc
	State   StateFunc
	Now     func() time.Time
}

// Outcome is one performance observation within a module.
type Outcome struct {
	UserID      string    `json:"user_id"`
	ModuleID    string    `json:"module_id"`
	SkillID     string    `json:"skill_id"`
	SuccessRate float64   `json:"success_rate"`
	Metrics     Metrics   `json:"metrics"`
	At          time.Time `json:"at"`
	// Level gates which readiness thresholds are checked; basics when empty.
	Level types.Level `json:"level,omitempty"`
	// WasReady lists modules the caller already considers unlocked.
	WasReady  []string       `json:"was_ready,omitempty"`
	Available []types.Action `json:"available_actions,omitempty"`
	// Epsilon overrides the configured exploration rate when set.
	Epsilon *float64 `json:"epsilon,omitempty"`
}

type Feedback struct {
	Gaps              []types.KnowledgeGap `json:"gaps"`
	ModuleUnlocks     []types.ModuleUnlock `json:"module_unlocks"`
	Readiness         []types.Readiness    `json:"readiness"`
	RecommendedAction types.Action         `json:"recommended_action"`
	Reward            float64              `json:"reward"`
	State             types.DecisionState  `json:"state"`
	PrevState         types.DecisionState  `json:"prev_state,omitempty"`
	Fallback          bool                 `json:"fallback"`
	Warnings          []string             `json:"warnings,omitempty"`
}

// Coordinator runs the full outcome pipeline: observe, gaps, readiness,
// reward, policy update, next action.
type Coordinator struct {
	d      Deps
	opts   Options
	log    *logger.Logger
	tracer trace.Tracer
}

func New(d Deps, opts Options) (*Coordinator, error) {
	if d.Graph == nil || d.Store == nil || d.Gaps == nil || d.Readiness == nil || d.Policy == nil || d.Decisions == nil {
		return nil, fmt.Errorf("coordinator: missing dependency")
	}
	if d.Locker == nil {
		d.Locker = keylock.NewLocal()
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if opts.Reward == nil {
		opts.Reward = DefaultReward
	}
	if opts.State == nil {
		opts.State = DefaultState
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Epsilon = clamp01(opts.Epsilon)
	return &Coordinator{
		d:      d,
		opts:   opts,
		log:    d.Log.With("component", "DecisionCoordinator"),
		tracer: otel.Tracer("neurobridge-mastery/coordinator"),
	}, nil
}

// ProcessOutcome never fails because of the policy: a policy fault yields the
// fallback action. Storage failures from the observe, gap and readiness steps
// are returned together with the best-effort Feedback.
func (c *Coordinator) ProcessOutcome(ctx context.Context, in Outcome) (Feedback, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.ModuleID = strings.TrimSpace(in.ModuleID)
	in.SkillID = strings.TrimSpace(in.SkillID)
	if in.Level == "" {
		in.Level = types.LevelBasics
	}
	if in.At.IsZero() {
		in.At = c.opts.Now()
	}
	in.At = in.At.UTC()
	if in.UserID == "" {
		return Feedback{}, fmt.Errorf("%w: user id required", types.ErrInvalidObservation)
	}
	moduleReqs, err := c.d.Graph.Requirements(in.ModuleID, in.Level)
	if err != nil {
		return Feedback{}, err
	}

	ctx, span := c.tracer.Start(ctx, "mastery.process_outcome", trace.WithAttributes(
		attribute.String("module_id", in.ModuleID),
		attribute.String("skill_id", in.SkillID),
		attribute.String("level", string(in.Level)),
	))
	defer span.End()

	releaseModule, err := c.d.Locker.Lock(ctx, keylock.ModuleKey(in.UserID, in.ModuleID))
	if err != nil {
		span.RecordError(err)
		return Feedback{}, err
	}
	defer releaseModule()

	log := c.log.With("user_id", in.UserID, "module_id", in.ModuleID, "skill_id", in.SkillID)
	fb := Feedback{Gaps: []types.KnowledgeGap{}, ModuleUnlocks: []types.ModuleUnlock{}, Readiness: []types.Readiness{}}
	var stepErrs []error

	// 1. observe
	if err := c.observe(ctx, in); err != nil {
		if types.IsCallerError(err) {
			log.Warn("observation rejected", "error", err)
			fb.Warnings = append(fb.Warnings, err.Error())
		} else {
			log.Error("observation failed", "error", err)
			stepErrs = append(stepErrs, err)
		}
	}

	// 2 + 3. gaps and readiness read the same state and run concurrently
	var gapErr, readyErr error
	var g errgroup.Group
	g.Go(func() error {
		gaps, err := c.d.Gaps.IdentifyGaps(ctx, in.UserID)
		if err != nil {
			gapErr = err
			return nil
		}
		fb.Gaps = gaps
		return nil
	})
	g.Go(func() error {
		modules := c.d.Graph.ModulesRequiring(in.SkillID)
		rs, err := c.d.Readiness.CheckAll(ctx, in.UserID, modules, in.Level)
		if err != nil {
			readyErr = err
			return nil
		}
		fb.Readiness = rs
		return nil
	})
	_ = g.Wait()
	for _, err := range []error{gapErr, readyErr} {
		if err == nil {
			continue
		}
		log.Error("analysis step failed", "error", err)
		stepErrs = append(stepErrs, err)
	}
	fb.ModuleUnlocks = newlyReady(fb.Readiness, in)
	c.publish(ctx, log, &fb)

	// 4. reward and state
	fb.Reward = c.opts.Reward(in)
	probs, err := c.d.Store.Snapshot(ctx, in.UserID)
	if err != nil {
		log.Warn("snapshot for decision state failed", "error", err)
		probs = map[string]float64{}
	}
	fb.State = c.opts.State(StateInput{
		SkillProbability:  probs[in.SkillID],
		ModuleProbability: moduleMean(moduleReqs, probs),
		Streak:            in.Metrics.Streak,
		Phase:             in.Metrics.Phase,
	})

	// 5 + 6. policy
	scope := types.Scope{UserID: in.UserID, ModuleID: in.ModuleID}
	action, prev, err := c.decide(ctx, scope, in, fb.Reward, fb.State)
	fb.PrevState = prev
	if err != nil {
		log.Warn("policy failed, using fallback action", "error", err)
		span.AddEvent("policy_fallback")
		fb.Fallback = true
		fb.Warnings = append(fb.Warnings, "policy unavailable: "+err.Error())
		action = types.FallbackAction
	}
	fb.RecommendedAction = action

	mem := &types.DecisionMemory{UserID: in.UserID, ModuleID: in.ModuleID, State: fb.State, ActionIndex: action.Index(), DecidedAt: in.At}
	if err := c.d.Decisions.Put(ctx, mem); err != nil {
		log.Warn("decision memory write failed", "error", err)
	}
	c.trace(ctx, log, in, fb)

	span.SetAttributes(
		attribute.Int("gaps", len(fb.Gaps)),
		attribute.Int("unlocks", len(fb.ModuleUnlocks)),
		attribute.String("action", action.String()),
		attribute.Bool("fallback", fb.Fallback),
	)
	log.Info("outcome processed",
		"state", string(fb.State),
		"reward", fb.Reward,
		"action", action.String(),
		"fallback", fb.Fallback,
		"gaps", len(fb.Gaps),
		"unlocks", len(fb.ModuleUnlocks),
	)

	if len(stepErrs) > 0 {
		err := errors.Join(stepErrs...)
		span.SetStatus(codes.Error, err.Error())
		return fb, err
	}
	return fb, nil
}

func (c *Coordinator) observe(ctx context.Context, in Outcome) error {
	ctx, span := c.tracer.Start(ctx, "mastery.observe")
	defer span.End()
	release, err := c.d.Locker.Lock(ctx, keylock.SkillKey(in.UserID, in.SkillID))
	if err != nil {
		return err
	}
	defer release()
	_, err = c.d.Store.Observe(ctx, in.UserID, in.SkillID, in.SuccessRate, in.At)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// decide credits the previous recommendation with reward, then picks the next.
func (c *Coordinator) decide(ctx context.Context, scope types.Scope, in Outcome, reward float64, state types.DecisionState) (types.Action, types.DecisionState, error) {
	ctx, span := c.tracer.Start(ctx, "mastery.policy")
	defer span.End()

	prev, err := c.d.Decisions.Get(ctx, scope)
	if err != nil {
		return types.Action{}, "", err
	}
	var prevState types.DecisionState
	if prev != nil {
		prevState = prev.State
		prevAction, err := types.ActionAt(prev.ActionIndex)
		if err != nil {
			return types.Action{}, prevState, err
		}
		if _, err := c.d.Policy.Update(ctx, scope, prev.State, prevAction, reward, state, in.Available); err != nil {
			return types.Action{}, prevState, err
		}
	}

	eps := c.opts.Epsilon
	if in.Epsilon != nil {
		eps = clamp01(*in.Epsilon)
	}
	action, err := c.d.Policy.SelectAction(ctx, scope, state, in.Available, eps)
	if err != nil {
		return types.Action{}, prevState, err
	}
	return action, prevState, nil
}

func (c *Coordinator) publish(ctx context.Context, log *logger.Logger, fb *Feedback) {
	if c.d.Publisher == nil {
		return
	}
	for _, ev := range fb.ModuleUnlocks {
		if err := c.d.Publisher.Publish(ctx, ev); err != nil {
			log.Warn("unlock publish failed", "unlocked_module", ev.ModuleID, "error", err)
			fb.Warnings = append(fb.Warnings, "unlock not published: "+ev.ModuleID)
		}
	}
}

func (c *Coordinator) trace(ctx context.Context, log *logger.Logger, in Outcome, fb Feedback) {
	if c.d.Traces == nil {
		return
	}
	metrics, _ := json.Marshal(in.Metrics)
	unlocks, _ := json.Marshal(fb.ModuleUnlocks)
	row := &types.OutcomeTrace{
		UserID:      in.UserID,
		ModuleID:    in.ModuleID,
		SkillID:     in.SkillID,
		SuccessRate: in.SuccessRate,
		Reward:      fb.Reward,
		PrevState:   fb.PrevState,
		State:       fb.State,
		ActionIndex: fb.RecommendedAction.Index(),
		Fallback:    fb.Fallback,
		Metrics:     metrics,
		Unlocks:     unlocks,
		GapCount:    len(fb.Gaps),
		ObservedAt:  in.At,
	}
	if err := c.d.Traces.Create(ctx, row); err != nil {
		log.Warn("outcome trace write failed", "error", err)
	}
}

func newlyReady(rs []types.Readiness, in Outcome) []types.ModuleUnlock {
	was := make(map[string]bool, len(in.WasReady))
	for _, id := range in.WasReady {
		was[strings.TrimSpace(id)] = true
	}
	out := []types.ModuleUnlock{}
	for _, r := range rs {
		if !r.Ready || was[r.ModuleID] {
			continue
		}
		out = append(out, types.ModuleUnlock{UserID: in.UserID, ModuleID: r.ModuleID, Level: r.Level, At: in.At})
	}
	return out
}

func moduleMean(reqs []types.SkillRequirement, probs map[string]float64) float64 {
	if len(reqs) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range reqs {
		sum += probs[r.SkillID]
	}
	return sum / float64(len(reqs))
}

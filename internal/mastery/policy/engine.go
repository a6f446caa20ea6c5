package policy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type Config struct {
	LearningRate float64 `yaml:"learning_rate"`
	Discount     float64 `yaml:"discount"`
	Epsilon      float64 `yaml:"epsilon"`
}

var DefaultConfig = Config{LearningRate: 0.1, Discount: 0.9, Epsilon: 0.1}

func (c Config) withDefaults() Config {
	if c.LearningRate == 0 {
		c.LearningRate = DefaultConfig.LearningRate
	}
	if c.Discount == 0 {
		c.Discount = DefaultConfig.Discount
	}
	return c
}

func (c Config) Validate() error {
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("policy: learning_rate must be in (0,1], got %v", c.LearningRate)
	}
	if c.Discount < 0 || c.Discount >= 1 {
		return fmt.Errorf("policy: discount must be in [0,1), got %v", c.Discount)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("policy: epsilon must be in [0,1], got %v", c.Epsilon)
	}
	return nil
}

// Engine is a tabular Q-learner partitioned per (user, module). It holds no
// table itself; every read and write goes through the repository.
type Engine struct {
	repo repos.QValueRepo
	rnd  RandomSource
	cfg  Config
	log  *logger.Logger
	now  func() time.Time
}

func NewEngine(repo repos.QValueRepo, rnd RandomSource, cfg Config, log *logger.Logger) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("policy: repo required")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = NewRandomSource(time.Now().UnixNano())
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{repo: repo, rnd: rnd, cfg: cfg, log: log.With("component", "PolicyEngine"), now: time.Now}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// SelectAction is epsilon-greedy over available. An empty set means every action.
func (e *Engine) SelectAction(ctx context.Context, scope types.Scope, state types.DecisionState, available []types.Action, epsilon float64) (types.Action, error) {
	if err := validScope(scope); err != nil {
		return types.Action{}, err
	}
	cands, err := candidates(available)
	if err != nil {
		return types.Action{}, err
	}
	epsilon = clamp01(epsilon)

	if epsilon > 0 && e.rnd.Float64() < epsilon {
		return cands[e.rnd.Intn(len(cands))], nil
	}

	row, err := e.Values(ctx, scope, state)
	if err != nil {
		return types.Action{}, err
	}
	return argmax(row, cands), nil
}

// Update applies one temporal-difference step to Q(state, action).
func (e *Engine) Update(ctx context.Context, scope types.Scope, state types.DecisionState, action types.Action, reward float64, next types.DecisionState, nextAvailable []types.Action) (types.QEntry, error) {
	if err := validScope(scope); err != nil {
		return types.QEntry{}, err
	}
	idx := action.Index()
	if idx < 0 {
		return types.QEntry{}, fmt.Errorf("%w: %v", types.ErrInvalidAction, action)
	}
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return types.QEntry{}, fmt.Errorf("%w: reward must be finite", types.ErrInvalidObservation)
	}
	nextCands, err := candidates(nextAvailable)
	if err != nil {
		return types.QEntry{}, err
	}

	nextRow, err := e.Values(ctx, scope, next)
	if err != nil {
		return types.QEntry{}, err
	}
	maxNext := math.Inf(-1)
	for _, a := range nextCands {
		maxNext = math.Max(maxNext, nextRow[a.Index()])
	}

	cur, err := e.repo.Get(ctx, scope, state, idx)
	if err != nil {
		return types.QEntry{}, err
	}
	if cur == nil {
		cur = &types.QEntry{UserID: scope.UserID, ModuleID: scope.ModuleID, State: state, ActionIndex: idx}
	}
	old := cur.QValue
	cur.QValue = old + e.cfg.LearningRate*(reward+e.cfg.Discount*maxNext-old)
	cur.VisitCount++
	cur.UpdatedAt = e.now().UTC()
	if err := e.repo.Put(ctx, cur); err != nil {
		return types.QEntry{}, err
	}

	e.log.Debug("q updated",
		"user_id", scope.UserID,
		"module_id", scope.ModuleID,
		"state", string(state),
		"action", action.String(),
		"reward", reward,
		"q_old", old,
		"q_new", cur.QValue,
	)
	return *cur, nil
}

// Values returns the full action-value row for a state, unseen slots at 0.
func (e *Engine) Values(ctx context.Context, scope types.Scope, state types.DecisionState) ([types.ActionCount]float64, error) {
	var row [types.ActionCount]float64
	entries, err := e.repo.ListByState(ctx, scope, state)
	if err != nil {
		return row, err
	}
	for _, q := range entries {
		if q == nil || q.ActionIndex < 0 || q.ActionIndex >= types.ActionCount {
			continue
		}
		row[q.ActionIndex] = q.QValue
	}
	return row, nil
}

// candidates validates and orders the action set by index.
func candidates(available []types.Action) ([]types.Action, error) {
	if len(available) == 0 {
		return types.AllActions(), nil
	}
	seen := make(map[int]bool, len(available))
	out := make([]types.Action, 0, len(available))
	for _, a := range available {
		idx := a.Index()
		if idx < 0 {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidAction, a)
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out, nil
}

func argmax(row [types.ActionCount]float64, cands []types.Action) types.Action {
	best := cands[0]
	for _, a := range cands[1:] {
		if row[a.Index()] > row[best.Index()] {
			best = a
		}
	}
	return best
}

func validScope(s types.Scope) error {
	if strings.TrimSpace(s.UserID) == "" || strings.TrimSpace(s.ModuleID) == "" {
		return fmt.Errorf("%w: user and module required", types.ErrInvalidObservation)
	}
	return nil
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

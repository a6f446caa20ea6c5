package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/coordinator"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/gaps"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/knowledge"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/policy"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/readiness"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/skillgraph"
	"github.com/yungbote/neurobridge-mastery/internal/platform/keylock"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type MasteryService interface {
	// Initialize loads the skill graph and builds the engine. It may be called
	// again to reload the graph.
	Initialize(ctx context.Context) error
	Ready() bool

	ObserveSkillPerformance(ctx context.Context, userID, skillID string, successRate float64, at time.Time) (types.SkillState, error)
	GetMastery(ctx context.Context, userID, skillID string) (types.Mastery, error)
	GetMasteryAt(ctx context.Context, userID, skillID string, at time.Time) (types.Mastery, error)
	ListMastery(ctx context.Context, userID string) ([]types.SkillState, error)
	IdentifyGaps(ctx context.Context, userID string) ([]types.KnowledgeGap, error)
	CheckModuleReadiness(ctx context.Context, userID, moduleID string, level types.Level) (types.Readiness, error)
	ProcessOutcome(ctx context.Context, in coordinator.Outcome) (coordinator.Feedback, error)

	SelectAction(ctx context.Context, scope types.Scope, state types.DecisionState, available []types.Action, epsilon *float64) (types.Action, error)
	UpdatePolicy(ctx context.Context, scope types.Scope, state types.DecisionState, action types.Action, reward float64, next types.DecisionState, nextAvailable []types.Action) (types.QEntry, error)
	PolicyValues(ctx context.Context, scope types.Scope, state types.DecisionState) ([types.ActionCount]float64, error)
	ListOutcomes(ctx context.Context, scope types.Scope, limit int) ([]*types.OutcomeTrace, error)
	SkillGraph() (skillgraph.Definition, error)
}

type MasteryConfig struct {
	Knowledge knowledge.Params
	Policy    policy.Config
	Reward    coordinator.RewardFunc
	State     coordinator.StateFunc
	Random    policy.RandomSource
}

type masteryService struct {
	log       *logger.Logger
	source    skillgraph.Source
	repos     repos.Set
	locker    keylock.Locker
	publisher coordinator.UnlockPublisher
	cfg       MasteryConfig

	engine atomic.Pointer[masteryEngine]
}

// masteryEngine is everything built from one graph load.
type masteryEngine struct {
	graph  *skillgraph.Graph
	store  *knowledge.Store
	gaps   *gaps.Analyzer
	gate   *readiness.Gate
	policy *policy.Engine
	coord  *coordinator.Coordinator
}

func NewMasteryService(
	log *logger.Logger,
	source skillgraph.Source,
	set repos.Set,
	locker keylock.Locker,
	publisher coordinator.UnlockPublisher,
	cfg MasteryConfig,
) (MasteryService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if source == nil {
		return nil, fmt.Errorf("skill graph source required")
	}
	if set.SkillStates == nil || set.QValues == nil || set.DecisionMemory == nil || set.OutcomeTraces == nil {
		return nil, fmt.Errorf("repository set incomplete")
	}
	if locker == nil {
		locker = keylock.NewLocal()
	}
	if cfg.Random == nil {
		cfg.Random = policy.NewRandomSource(time.Now().UnixNano())
	}
	return &masteryService{
		log:       log.With("service", "MasteryService"),
		source:    source,
		repos:     set,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

func (s *masteryService) Initialize(ctx context.Context) error {
	g, err := skillgraph.Build(ctx, s.source)
	if err != nil {
		return err
	}
	store, err := knowledge.NewStore(g, s.repos.SkillStates, s.cfg.Knowledge, s.log)
	if err != nil {
		return err
	}
	an, err := gaps.NewAnalyzer(g, store)
	if err != nil {
		return err
	}
	gate, err := readiness.NewGate(g, store)
	if err != nil {
		return err
	}
	eng, err := policy.NewEngine(s.repos.QValues, s.cfg.Random, s.cfg.Policy, s.log)
	if err != nil {
		return err
	}
	coord, err := coordinator.New(coordinator.Deps{
		Graph:     g,
		Store:     store,
		Gaps:      an,
		Readiness: gate,
		Policy:    eng,
		Decisions: s.repos.DecisionMemory,
		Traces:    s.repos.OutcomeTraces,
		Locker:    s.locker,
		Publisher: s.publisher,
		Log:       s.log,
	}, coordinator.Options{
		Epsilon: eng.Config().Epsilon,
		Reward:  s.cfg.Reward,
		State:   s.cfg.State,
	})
	if err != nil {
		return err
	}
	s.engine.Store(&masteryEngine{graph: g, store: store, gaps: an, gate: gate, policy: eng, coord: coord})
	s.log.Info("mastery engine initialized", "skills", len(g.Skills()), "modules", len(g.Modules()))
	return nil
}

func (s *masteryService) Ready() bool { return s.engine.Load() != nil }

func (s *masteryService) current() (*masteryEngine, error) {
	e := s.engine.Load()
	if e == nil {
		return nil, types.ErrNotInitialized
	}
	return e, nil
}

func (s *masteryService) ObserveSkillPerformance(ctx context.Context, userID, skillID string, successRate float64, at time.Time) (types.SkillState, error) {
	e, err := s.current()
	if err != nil {
		return types.SkillState{}, err
	}
	release, err := s.locker.Lock(ctx, keylock.SkillKey(strings.TrimSpace(userID), strings.TrimSpace(skillID)))
	if err != nil {
		return types.SkillState{}, err
	}
	defer release()
	return e.store.Observe(ctx, userID, skillID, successRate, at)
}

func (s *masteryService) GetMastery(ctx context.Context, userID, skillID string) (types.Mastery, error) {
	e, err := s.current()
	if err != nil {
		return types.Mastery{}, err
	}
	return e.store.Mastery(ctx, userID, skillID)
}

func (s *masteryService) GetMasteryAt(ctx context.Context, userID, skillID string, at time.Time) (types.Mastery, error) {
	e, err := s.current()
	if err != nil {
		return types.Mastery{}, err
	}
	return e.store.MasteryAt(ctx, userID, skillID, at)
}

func (s *masteryService) ListMastery(ctx context.Context, userID string) ([]types.SkillState, error) {
	e, err := s.current()
	if err != nil {
		return nil, err
	}
	return e.store.List(ctx, userID)
}

func (s *masteryService) IdentifyGaps(ctx context.Context, userID string) ([]types.KnowledgeGap, error) {
	e, err := s.current()
	if err != nil {
		return nil, err
	}
	return e.gaps.IdentifyGaps(ctx, userID)
}

func (s *masteryService) CheckModuleReadiness(ctx context.Context, userID, moduleID string, level types.Level) (types.Readiness, error) {
	e, err := s.current()
	if err != nil {
		return types.Readiness{}, err
	}
	if level == "" {
		level = types.LevelBasics
	}
	return e.gate.Check(ctx, userID, moduleID, level)
}

func (s *masteryService) ProcessOutcome(ctx context.Context, in coordinator.Outcome) (coordinator.Feedback, error) {
	e, err := s.current()
	if err != nil {
		return coordinator.Feedback{}, err
	}
	return e.coord.ProcessOutcome(ctx, in)
}

func (s *masteryService) SelectAction(ctx context.Context, scope types.Scope, state types.DecisionState, available []types.Action, epsilon *float64) (types.Action, error) {
	e, err := s.current()
	if err != nil {
		return types.Action{}, err
	}
	eps := e.policy.Config().Epsilon
	if epsilon != nil {
		eps = *epsilon
	}
	return e.policy.SelectAction(ctx, scope, state, available, eps)
}

func (s *masteryService) UpdatePolicy(ctx context.Context, scope types.Scope, state types.DecisionState, action types.Action, reward float64, next types.DecisionState, nextAvailable []types.Action) (types.QEntry, error) {
	e, err := s.current()
	if err != nil {
		return types.QEntry{}, err
	}
	release, err := s.locker.Lock(ctx, keylock.ModuleKey(scope.UserID, scope.ModuleID))
	if err != nil {
		return types.QEntry{}, err
	}
	defer release()
	return e.policy.Update(ctx, scope, state, action, reward, next, nextAvailable)
}

func (s *masteryService) PolicyValues(ctx context.Context, scope types.Scope, state types.DecisionState) ([types.ActionCount]float64, error) {
	e, err := s.current()
	if err != nil {
		return [types.ActionCount]float64{}, err
	}
	return e.policy.Values(ctx, scope, state)
}

func (s *masteryService) ListOutcomes(ctx context.Context, scope types.Scope, limit int) ([]*types.OutcomeTrace, error) {
	if _, err := s.current(); err != nil {
		return nil, err
	}
	return s.repos.OutcomeTraces.ListByScope(ctx, scope, limit)
}

func (s *masteryService) SkillGraph() (skillgraph.Definition, error) {
	e, err := s.current()
	if err != nil {
		return skillgraph.Definition{}, err
	}
	return e.graph.Definition(), nil
}

package knowledge

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/skillgraph"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// Store is the only writer of SkillState. It keeps no state of its own;
// callers serialise writes per (user, skill).
type Store struct {
	graph  *skillgraph.Graph
	repo   repos.SkillStateRepo
	params Params
	log    *logger.Logger
}

func NewStore(graph *skillgraph.Graph, repo repos.SkillStateRepo, params Params, log *logger.Logger) (*Store, error) {
	if graph == nil || repo == nil {
		return nil, fmt.Errorf("knowledge: graph and repo required")
	}
	params = params.withDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{graph: graph, repo: repo, params: params, log: log.With("component", "KnowledgeStore")}, nil
}

func (p Params) Validate() error {
	if p.PGuess <= 0 || p.PGuess >= 1 {
		return fmt.Errorf("knowledge: p_guess %v outside (0,1)", p.PGuess)
	}
	if p.PSlip <= 0 || p.PSlip >= 1 {
		return fmt.Errorf("knowledge: p_slip %v outside (0,1)", p.PSlip)
	}
	if p.ForgetRate < 0 || math.IsNaN(p.ForgetRate) {
		return fmt.Errorf("knowledge: forget_rate %v must be >= 0", p.ForgetRate)
	}
	if p.InitialProbability <= 0 || p.InitialProbability >= 1 {
		return fmt.Errorf("knowledge: initial_probability %v outside (0,1)", p.InitialProbability)
	}
	return nil
}

func (s *Store) Params() Params { return s.params }

// Observe folds one performance observation into the learner's skill state.
// Forgetting since the last update is applied to the prior before the new
// evidence is fused.
func (s *Store) Observe(ctx context.Context, userID, skillID string, successRate float64, at time.Time) (types.SkillState, error) {
	userID = strings.TrimSpace(userID)
	skillID = strings.TrimSpace(skillID)
	if userID == "" {
		return types.SkillState{}, fmt.Errorf("%w: user id required", types.ErrInvalidObservation)
	}
	if !s.graph.HasSkill(skillID) {
		return types.SkillState{}, fmt.Errorf("%w: %q", types.ErrInvalidSkillID, skillID)
	}
	if math.IsNaN(successRate) || successRate < 0 || successRate > 1 {
		return types.SkillState{}, fmt.Errorf("%w: success rate %v outside [0,1]", types.ErrInvalidObservation, successRate)
	}
	if at.IsZero() {
		return types.SkillState{}, fmt.Errorf("%w: timestamp required", types.ErrInvalidObservation)
	}
	at = at.UTC()

	prev, err := s.repo.Get(ctx, userID, skillID)
	if err != nil {
		return types.SkillState{}, err
	}
	st := types.SkillState{
		UserID:           userID,
		SkillID:          skillID,
		KnownProbability: s.params.InitialProbability,
		LastUpdated:      at,
	}
	if prev != nil {
		if at.Before(prev.LastUpdated) {
			return types.SkillState{}, fmt.Errorf("%w: observation at %s precedes last update %s",
				types.ErrInvalidObservation, at.Format(time.RFC3339Nano), prev.LastUpdated.UTC().Format(time.RFC3339Nano))
		}
		st = *prev
	}

	decayedPrior := Decay(st.KnownProbability, s.params.ForgetRate, st.LastUpdated, at)
	l := Likelihood(successRate, s.params.PGuess, s.params.PSlip)
	st.KnownProbability = Posterior(decayedPrior, l)
	st.Attempts++
	if successRate >= 0.5 {
		st.Successes++
	}
	st.EvidenceSum += successRate
	st.LastUpdated = at

	if err := s.repo.Put(ctx, &st); err != nil {
		return types.SkillState{}, err
	}
	s.log.Debug("skill observed",
		"user_id", userID,
		"skill_id", skillID,
		"success_rate", successRate,
		"prior", decayedPrior,
		"posterior", st.KnownProbability,
		"attempts", st.Attempts,
	)
	return st, nil
}

// Mastery returns the stored estimate; an unseen skill reports 0 with 0 attempts.
func (s *Store) Mastery(ctx context.Context, userID, skillID string) (types.Mastery, error) {
	if !s.graph.HasSkill(skillID) {
		return types.Mastery{}, fmt.Errorf("%w: %q", types.ErrInvalidSkillID, skillID)
	}
	st, err := s.repo.Get(ctx, strings.TrimSpace(userID), strings.TrimSpace(skillID))
	if err != nil {
		return types.Mastery{}, err
	}
	if st == nil {
		return types.Mastery{}, nil
	}
	return types.Mastery{Probability: clamp01(st.KnownProbability), Attempts: st.Attempts}, nil
}

// MasteryAt projects the stored estimate forward to at without writing it.
func (s *Store) MasteryAt(ctx context.Context, userID, skillID string, at time.Time) (types.Mastery, error) {
	if !s.graph.HasSkill(skillID) {
		return types.Mastery{}, fmt.Errorf("%w: %q", types.ErrInvalidSkillID, skillID)
	}
	st, err := s.repo.Get(ctx, strings.TrimSpace(userID), strings.TrimSpace(skillID))
	if err != nil {
		return types.Mastery{}, err
	}
	if st == nil {
		return types.Mastery{}, nil
	}
	return types.Mastery{
		Probability: Decay(st.KnownProbability, s.params.ForgetRate, st.LastUpdated, at),
		Attempts:    st.Attempts,
	}, nil
}

// Snapshot returns the stored probability of every skill the learner has
// state for, keyed by skill id. Skills without state are absent.
func (s *Store) Snapshot(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := s.repo.ListByUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		out[r.SkillID] = clamp01(r.KnownProbability)
	}
	return out, nil
}

// List returns every stored state for the learner ordered by skill id.
func (s *Store) List(ctx context.Context, userID string) ([]types.SkillState, error) {
	rows, err := s.repo.ListByUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	out := make([]types.SkillState, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

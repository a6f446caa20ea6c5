// Package memory holds process-local repositories used for tests and
// single-node development. Rows are copied on the way in and out so callers
// never share mutable state with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

type skillKey struct{ user, skill string }

type qKey struct {
	user, module string
	state        types.DecisionState
	action       int
}

type scopeKey struct{ user, module string }

type Store struct {
	mu        sync.RWMutex
	skills    map[skillKey]types.SkillState
	qvalues   map[qKey]types.QEntry
	decisions map[scopeKey]types.DecisionMemory
	traces    []types.OutcomeTrace
}

func New() *Store {
	return &Store{
		skills:    map[skillKey]types.SkillState{},
		qvalues:   map[qKey]types.QEntry{},
		decisions: map[scopeKey]types.DecisionMemory{},
	}
}

func (s *Store) SkillStates() *SkillStates       { return &SkillStates{s: s} }
func (s *Store) QValues() *QValues               { return &QValues{s: s} }
func (s *Store) DecisionMemory() *DecisionMemory { return &DecisionMemory{s: s} }
func (s *Store) OutcomeTraces() *OutcomeTraces   { return &OutcomeTraces{s: s} }

type SkillStates struct{ s *Store }

func (r *SkillStates) Get(ctx context.Context, userID, skillID string) (*types.SkillState, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.Unavailable(err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.skills[skillKey{userID, skillID}]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *SkillStates) Put(ctx context.Context, row *types.SkillState) error {
	if err := ctx.Err(); err != nil {
		return types.Unavailable(err)
	}
	if row == nil {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.skills[skillKey{row.UserID, row.SkillID}] = *row
	return nil
}

func (r *SkillStates) ListByUser(ctx context.Context, userID string) ([]*types.SkillState, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.Unavailable(err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*types.SkillState{}
	for k, v := range r.s.skills {
		if k.user != userID {
			continue
		}
		row := v
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out, nil
}

type QValues struct{ s *Store }

func (r *QValues) Get(ctx context.Context, scope types.Scope, state types.DecisionState, actionIndex int) (*types.QEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.Unavailable(err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.qvalues[qKey{scope.UserID, scope.ModuleID, state, actionIndex}]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *QValues) ListByState(ctx context.Context, scope types.Scope, state types.DecisionState) ([]*types.QEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.Unavailable(err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*types.QEntry{}
	for k, v := range r.s.qvalues {
		if k.user != scope.UserID || k.module != scope.ModuleID || k.state != state {
			continue
		}
		row := v
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActionIndex < out[j].ActionIndex })
	return out, nil
}

func (r *QValues) Put(ctx context.Context, row *types.QEntry) error {
	if err := ctx.Err(); err != nil {
		return types.Unavailable(err)
	}
	if row == nil {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.qvalues[qKey{row.UserID, row.ModuleID, row.State, row.ActionIndex}] = *row
	return nil
}

type DecisionMemory struct{ s *Store }

func (r *DecisionMemory) Get(ctx context.Context, scope types.Scope) (*types.DecisionMemory, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.Unavailable(err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.decisions[scopeKey{scope.UserID, scope.ModuleID}]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *DecisionMemory) Put(ctx context.Context, row *types.DecisionMemory) error {
	if err := ctx.Err(); err != nil {
		return types.Unavailable(err)
	}
	if row == nil {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.decisions[scopeKey{row.UserID, row.ModuleID}] = *row
	return nil
}

type OutcomeTraces struct{ s *Store }

func (r *OutcomeTraces) Create(ctx context.Context, row *types.OutcomeTrace) error {
	if err := ctx.Err(); err != nil {
		return types.Unavailable(err)
	}
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.traces = append(r.s.traces, *row)
	return nil
}

func (r *OutcomeTraces) ListByScope(ctx context.Context, scope types.Scope, limit int) ([]*types.OutcomeTrace, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.Unavailable(err)
	}
	if limit <= 0 {
		limit = 50
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*types.OutcomeTrace{}
	for i := len(r.s.traces) - 1; i >= 0 && len(out) < limit; i-- {
		t := r.s.traces[i]
		if t.UserID != scope.UserID || t.ModuleID != scope.ModuleID {
			continue
		}
		out = append(out, &t)
	}
	return out, nil
}

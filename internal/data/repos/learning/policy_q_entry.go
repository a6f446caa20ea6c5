package learning

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// QValueRepo persists policy entries keyed by (user, module, state, action).
type QValueRepo interface {
	Get(ctx context.Context, scope types.Scope, state types.DecisionState, actionIndex int) (*types.QEntry, error)
	ListByState(ctx context.Context, scope types.Scope, state types.DecisionState) ([]*types.QEntry, error)
	Put(ctx context.Context, row *types.QEntry) error
}

type qValueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQValueRepo(db *gorm.DB, baseLog *logger.Logger) QValueRepo {
	return &qValueRepo{db: db, log: baseLog.With("repo", "QValueRepo")}
}

func (r *qValueRepo) Get(ctx context.Context, scope types.Scope, state types.DecisionState, actionIndex int) (*types.QEntry, error) {
	var row types.QEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND module_id = ? AND state = ? AND action_index = ?", scope.UserID, scope.ModuleID, state, actionIndex).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, types.Unavailable(err)
	}
	return &row, nil
}

func (r *qValueRepo) ListByState(ctx context.Context, scope types.Scope, state types.DecisionState) ([]*types.QEntry, error) {
	out := []*types.QEntry{}
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND module_id = ? AND state = ?", scope.UserID, scope.ModuleID, state).
		Order("action_index ASC").
		Find(&out).Error; err != nil {
		return nil, types.Unavailable(err)
	}
	return out, nil
}

func (r *qValueRepo) Put(ctx context.Context, row *types.QEntry) error {
	if row == nil {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "module_id"}, {Name: "state"}, {Name: "action_index"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"q_value", "visit_count", "updated_at",
			}),
		}).
		Create(row).Error
	if err != nil {
		r.log.Warn("q entry upsert failed", "user_id", row.UserID, "module_id", row.ModuleID, "error", err)
		return types.Unavailable(err)
	}
	return nil
}

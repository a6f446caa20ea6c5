package learning

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type DecisionMemoryRepo interface {
	Get(ctx context.Context, scope types.Scope) (*types.DecisionMemory, error)
	Put(ctx context.Context, row *types.DecisionMemory) error
}

type decisionMemoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDecisionMemoryRepo(db *gorm.DB, baseLog *logger.Logger) DecisionMemoryRepo {
	return &decisionMemoryRepo{db: db, log: baseLog.With("repo", "DecisionMemoryRepo")}
}

func (r *decisionMemoryRepo) Get(ctx context.Context, scope types.Scope) (*types.DecisionMemory, error) {
	var row types.DecisionMemory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", scope.UserID, scope.ModuleID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, types.Unavailable(err)
	}
	return &row, nil
}

func (r *decisionMemoryRepo) Put(ctx context.Context, row *types.DecisionMemory) error {
	if row == nil {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "action_index", "decided_at"}),
		}).
		Create(row).Error
	if err != nil {
		return types.Unavailable(err)
	}
	return nil
}

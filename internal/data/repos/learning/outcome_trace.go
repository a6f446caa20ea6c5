package learning

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type OutcomeTraceRepo interface {
	Create(ctx context.Context, row *types.OutcomeTrace) error
	ListByScope(ctx context.Context, scope types.Scope, limit int) ([]*types.OutcomeTrace, error)
}

type outcomeTraceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutcomeTraceRepo(db *gorm.DB, baseLog *logger.Logger) OutcomeTraceRepo {
	return &outcomeTraceRepo{db: db, log: baseLog.With("repo", "OutcomeTraceRepo")}
}

func (r *outcomeTraceRepo) Create(ctx context.Context, row *types.OutcomeTrace) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return types.Unavailable(err)
	}
	return nil
}

func (r *outcomeTraceRepo) ListByScope(ctx context.Context, scope types.Scope, limit int) ([]*types.OutcomeTrace, error) {
	out := []*types.OutcomeTrace{}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", scope.UserID, scope.ModuleID).
		Order("observed_at DESC, created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, types.Unavailable(err)
	}
	return out, nil
}

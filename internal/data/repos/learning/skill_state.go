package learning

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// SkillStateRepo persists SkillState rows. Get returns (nil, nil) when absent.
// Every storage failure is wrapped with types.ErrPersistenceUnavailable.
type SkillStateRepo interface {
	Get(ctx context.Context, userID, skillID string) (*types.SkillState, error)
	Put(ctx context.Context, row *types.SkillState) error
	ListByUser(ctx context.Context, userID string) ([]*types.SkillState, error)
}

type skillStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSkillStateRepo(db *gorm.DB, baseLog *logger.Logger) SkillStateRepo {
	return &skillStateRepo{db: db, log: baseLog.With("repo", "SkillStateRepo")}
}

func (r *skillStateRepo) Get(ctx context.Context, userID, skillID string) (*types.SkillState, error) {
	var row types.SkillState
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND skill_id = ?", strings.TrimSpace(userID), strings.TrimSpace(skillID)).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, types.Unavailable(err)
	}
	return &row, nil
}

func (r *skillStateRepo) Put(ctx context.Context, row *types.SkillState) error {
	if row == nil || row.UserID == "" || row.SkillID == "" {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "skill_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"known_probability", "attempts", "successes", "evidence_sum", "last_updated",
			}),
		}).
		Create(row).Error
	if err != nil {
		r.log.Warn("skill state upsert failed", "user_id", row.UserID, "skill_id", row.SkillID, "error", err)
		return types.Unavailable(err)
	}
	return nil
}

func (r *skillStateRepo) ListByUser(ctx context.Context, userID string) ([]*types.SkillState, error) {
	out := []*types.SkillState{}
	if strings.TrimSpace(userID) == "" {
		return out, nil
	}
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("skill_id ASC").
		Find(&out).Error; err != nil {
		return nil, types.Unavailable(err)
	}
	return out, nil
}

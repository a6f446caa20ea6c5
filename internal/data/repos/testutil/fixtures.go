package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

func SeedSkillState(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, skillID string, p float64, at time.Time) *types.SkillState {
	tb.Helper()
	row := &types.SkillState{
		UserID:           userID,
		SkillID:          skillID,
		KnownProbability: p,
		Attempts:         1,
		LastUpdated:      at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed skill state: %v", err)
	}
	return row
}

func SeedQEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, scope types.Scope, state types.DecisionState, action types.Action, q float64) *types.QEntry {
	tb.Helper()
	row := &types.QEntry{
		UserID:      scope.UserID,
		ModuleID:    scope.ModuleID,
		State:       state,
		ActionIndex: action.Index(),
		QValue:      q,
		VisitCount:  1,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed q entry: %v", err)
	}
	return row
}

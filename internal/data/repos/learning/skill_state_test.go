package learning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

func TestSkillStateRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewSkillStateRepo(tx, testutil.Logger(t))

	got, err := repo.Get(ctx, "u-skillrepo", "suit_check")
	if err != nil || got != nil {
		t.Fatalf("absent Get: row=%v err=%v", got, err)
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	row := &types.SkillState{UserID: "u-skillrepo", SkillID: "suit_check", KnownProbability: 0.25, Attempts: 1, Successes: 1, EvidenceSum: 1, LastUpdated: at}
	if err := repo.Put(ctx, row); err != nil {
		t.Fatalf("Put: %v", err)
	}
	row.KnownProbability = 0.4
	row.Attempts = 2
	row.LastUpdated = at.Add(time.Hour)
	if err := repo.Put(ctx, row); err != nil {
		t.Fatalf("Put upsert: %v", err)
	}

	got, err = repo.Get(ctx, "u-skillrepo", "suit_check")
	if err != nil || got == nil {
		t.Fatalf("Get: row=%v err=%v", got, err)
	}
	if got.KnownProbability != 0.4 || got.Attempts != 2 || !got.LastUpdated.Equal(at.Add(time.Hour)) {
		t.Fatalf("upsert not applied: %+v", got)
	}

	testutil.SeedSkillState(t, ctx, tx, "u-skillrepo", "airlock_cycle", 0.9, at)
	testutil.SeedSkillState(t, ctx, tx, "u-other", "airlock_cycle", 0.1, at)
	rows, err := repo.ListByUser(ctx, "u-skillrepo")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 2 || rows[0].SkillID != "airlock_cycle" || rows[1].SkillID != "suit_check" {
		t.Fatalf("ListByUser order/scope wrong: %+v", rows)
	}
}

func TestSkillStateRepoWrapsStorageFailures(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewSkillStateRepo(db, testutil.Logger(t))

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	_ = sqlDB.Close()

	if _, err := repo.Get(ctx, "u", "s"); !errors.Is(err, types.ErrPersistenceUnavailable) {
		t.Fatalf("Get err=%v", err)
	}
	if err := repo.Put(ctx, &types.SkillState{UserID: "u", SkillID: "s"}); !errors.Is(err, types.ErrPersistenceUnavailable) {
		t.Fatalf("Put err=%v", err)
	}
}

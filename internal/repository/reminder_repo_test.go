package repository

import (
	"context"
	"testing"

	"github.com/yuqie6/LifeMirror/internal/schema"
	"github.com/yuqie6/LifeMirror/internal/testutil"
)

func TestReminderRepositoryMarkAndQuery(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewReminderRepository(db)
	ctx := context.Background()

	shown, err := repo.WasShown(ctx, 1, schema.ReminderDiaryMissing, "2025-03-10")
	if err != nil {
		t.Fatalf("WasShown error: %v", err)
	}
	if shown {
		t.Fatalf("未标记前不应为已展示")
	}

	if err := repo.MarkShown(ctx, 1, schema.ReminderDiaryMissing, "2025-03-10"); err != nil {
		t.Fatalf("MarkShown error: %v", err)
	}
	// 重复标记不报错、不产生第二行
	if err := repo.MarkShown(ctx, 1, schema.ReminderDiaryMissing, "2025-03-10"); err != nil {
		t.Fatalf("MarkShown again error: %v", err)
	}

	var count int64
	if err := db.Model(&schema.ReminderShown{}).Count(&count).Error; err != nil {
		t.Fatalf("count error: %v", err)
	}
	if count != 1 {
		t.Fatalf("count=%d, 期望 1", count)
	}

	shown, err = repo.WasShown(ctx, 1, schema.ReminderDiaryMissing, "2025-03-10")
	if err != nil {
		t.Fatalf("WasShown error: %v", err)
	}
	if !shown {
		t.Fatalf("标记后应为已展示")
	}

	// 类别之间互不影响
	shown, err = repo.WasShown(ctx, 1, schema.ReminderWeeklySummary, "2025-03-10")
	if err != nil {
		t.Fatalf("WasShown error: %v", err)
	}
	if shown {
		t.Fatalf("其他类别不应被标记")
	}

	// 第二天重新开始
	shown, err = repo.WasShown(ctx, 1, schema.ReminderDiaryMissing, "2025-03-11")
	if err != nil {
		t.Fatalf("WasShown error: %v", err)
	}
	if shown {
		t.Fatalf("次日不应沿用前一天的标记")
	}
}

func TestReminderRepositoryDeleteBefore(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewReminderRepository(db)
	ctx := context.Background()

	dates := []string{"2024-12-01", "2025-01-15", "2025-03-10"}
	for _, d := range dates {
		if err := repo.MarkShown(ctx, 1, schema.ReminderDiaryMissing, d); err != nil {
			t.Fatalf("MarkShown error: %v", err)
		}
	}

	deleted, err := repo.DeleteBefore(ctx, "2025-02-01")
	if err != nil {
		t.Fatalf("DeleteBefore error: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted=%d, want 2", deleted)
	}

	shown, err := repo.WasShown(ctx, 1, schema.ReminderDiaryMissing, "2025-03-10")
	if err != nil || !shown {
		t.Fatalf("保留范围内的标记丢失: shown=%v err=%v", shown, err)
	}
}

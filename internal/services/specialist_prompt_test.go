package services

import (
	"context"
	"testing"

	"github.com/tmratwork/risetwice-backend/internal/repos"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

func TestUpsertSpecialistPromptReplacesActiveRow(t *testing.T) {
	db := newTestDB(t)
	log := testLogger()
	repo := repos.NewSpecialistPromptRepo(db, log)
	svc := NewSpecialistPromptService(db, log, repo)

	first, err := svc.Upsert(context.Background(), SpecialistPromptInput{
		PromptType:    "triage",
		PromptContent: "Triage prompt v1.",
	})
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	second, err := svc.Upsert(context.Background(), SpecialistPromptInput{
		PromptType:    "triage",
		PromptContent: "Triage prompt v2.",
		VoiceSettings: map[string]any{"voice": "calm"},
	})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	active, err := repo.GetActiveByType(context.Background(), nil, "triage")
	if err != nil {
		t.Fatalf("GetActiveByType: %v", err)
	}
	if active == nil || active.ID != second.ID {
		t.Fatalf("active row = %+v, want the second upsert", active)
	}
	if active.PromptContent != "Triage prompt v2." {
		t.Fatalf("content = %q", active.PromptContent)
	}

	var old types.SpecialistPrompt
	if err := db.Where("id = ?", first.ID).First(&old).Error; err != nil {
		t.Fatalf("reload first row: %v", err)
	}
	if old.IsActive {
		t.Fatalf("previous active row was not deactivated")
	}

	var count int64
	if err := db.Model(&types.SpecialistPrompt{}).Where("prompt_type = ? AND is_active = ?", "triage", true).Count(&count).Error; err != nil {
		t.Fatalf("count active rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("active rows = %d, want exactly 1", count)
	}
}

func TestUpsertSpecialistPromptValidation(t *testing.T) {
	db := newTestDB(t)
	log := testLogger()
	svc := NewSpecialistPromptService(db, log, repos.NewSpecialistPromptRepo(db, log))

	if _, err := svc.Upsert(context.Background(), SpecialistPromptInput{PromptType: "triage"}); err == nil {
		t.Fatalf("expected error for missing content")
	}
	if _, err := svc.Upsert(context.Background(), SpecialistPromptInput{PromptContent: "content"}); err == nil {
		t.Fatalf("expected error for missing type")
	}
}

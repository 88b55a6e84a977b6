package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tmratwork/risetwice-backend/internal/repos"
)

func newPromptServiceForTest(t *testing.T) PromptService {
	db := newTestDB(t)
	log := testLogger()
	return NewPromptService(db, log, repos.NewPromptRepo(db, log))
}

func TestResolveContentFallsBackToDefault(t *testing.T) {
	svc := newPromptServiceForTest(t)

	content, err := svc.ResolveContent(context.Background(), PromptCategoryMemoryExtractionSystem)
	if err != nil {
		t.Fatalf("ResolveContent: %v", err)
	}
	want, _ := DefaultPrompt(PromptCategoryMemoryExtractionSystem)
	if content != want {
		t.Fatalf("content = %q, want the hard-coded default", content)
	}
}

func TestResolveContentUnknownCategory(t *testing.T) {
	svc := newPromptServiceForTest(t)
	if _, err := svc.ResolveContent(context.Background(), "no_such_category"); err == nil {
		t.Fatalf("expected error for a category with no prompt and no default")
	}
}

func TestSavePromptThenResolve(t *testing.T) {
	svc := newPromptServiceForTest(t)
	admin := uuid.New()

	prompt, version, err := svc.SavePrompt(context.Background(), admin, PromptCategoryMemoryMergeSystem, "Custom merge instructions.", "merge v2", "tuned for dedupe")
	if err != nil {
		t.Fatalf("SavePrompt: %v", err)
	}
	if version.VersionNumber != 1 {
		t.Fatalf("version = %d, want 1 for a fresh prompt row", version.VersionNumber)
	}
	if prompt.Category != PromptCategoryMemoryMergeSystem {
		t.Fatalf("category = %q", prompt.Category)
	}

	content, err := svc.ResolveContent(context.Background(), PromptCategoryMemoryMergeSystem)
	if err != nil {
		t.Fatalf("ResolveContent: %v", err)
	}
	if content != "Custom merge instructions." {
		t.Fatalf("content = %q, want the saved prompt", content)
	}
}

func TestSavePromptNewestRowWins(t *testing.T) {
	svc := newPromptServiceForTest(t)
	admin := uuid.New()

	if _, _, err := svc.SavePrompt(context.Background(), admin, PromptCategorySummarySheetSystem, "First draft.", "", ""); err != nil {
		t.Fatalf("first SavePrompt: %v", err)
	}
	// created_at decides between duplicate categories
	time.Sleep(10 * time.Millisecond)
	if _, _, err := svc.SavePrompt(context.Background(), admin, PromptCategorySummarySheetSystem, "Second draft.", "", ""); err != nil {
		t.Fatalf("second SavePrompt: %v", err)
	}

	content, err := svc.ResolveContent(context.Background(), PromptCategorySummarySheetSystem)
	if err != nil {
		t.Fatalf("ResolveContent: %v", err)
	}
	if content != "Second draft." {
		t.Fatalf("content = %q, want the most recent save", content)
	}
}

func TestSavePromptRejectsUnknownCategory(t *testing.T) {
	svc := newPromptServiceForTest(t)

	_, _, err := svc.SavePrompt(context.Background(), uuid.New(), "jailbreak_system", "anything", "", "")
	if err == nil {
		t.Fatalf("expected allow-list rejection")
	}
	if !strings.Contains(err.Error(), "not allowed") {
		t.Fatalf("err = %v, want a not-allowed error", err)
	}
}

func TestSavePromptRequiresContent(t *testing.T) {
	svc := newPromptServiceForTest(t)
	if _, _, err := svc.SavePrompt(context.Background(), uuid.New(), PromptCategoryMemoryMergeSystem, "", "", ""); err == nil {
		t.Fatalf("expected error for empty content")
	}
}

func TestFillPrompt(t *testing.T) {
	cases := []struct {
		name     string
		template string
		blocks   []string
		want     string
	}{
		{
			name:     "placeholders filled in order",
			template: "old: %s new: %s",
			blocks:   []string{"a", "b"},
			want:     "old: a new: b",
		},
		{
			name:     "no placeholders appends blocks",
			template: "just instructions",
			blocks:   []string{"content"},
			want:     "just instructions\n\ncontent",
		},
		{
			name:     "placeholder count mismatch appends",
			template: "one %s",
			blocks:   []string{"a", "b"},
			want:     "one %s\n\na\n\nb",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := fillPrompt(tc.template, tc.blocks...); got != tc.want {
				t.Fatalf("fillPrompt() = %q, want %q", got, tc.want)
			}
		})
	}
}

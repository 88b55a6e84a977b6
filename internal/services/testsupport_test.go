package services

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.UserProfile{},
		&types.Conversation{},
		&types.Message{},
		&types.Prompt{},
		&types.PromptVersion{},
		&types.SpecialistPrompt{},
		&types.MemorySnapshot{},
		&types.SummaryJob{},
		&types.SummarySheet{},
		&types.GreetingResource{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger() *logger.Logger {
	return logger.NewNop()
}

// fakeAIClient plays back canned responses in order and counts calls.
type fakeAIClient struct {
	responses []string
	calls     int
	err       error
}

func (f *fakeAIClient) Chat(ctx context.Context, messages []AIMessage, opts *AIOptions) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("fakeAIClient: no responses left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/modeljson"
	"github.com/tmratwork/risetwice-backend/internal/repos"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

// Quality filter thresholds: a conversation is eligible for memory
// extraction iff it has at least 6 messages, at least 3 user messages
// and at least 200 characters of user content.
const (
	memoryBatchSize      = 10
	minTotalMessages     = 6
	minUserMessages      = 3
	minUserContentLength = 200

	extractionTemperature = 0.3
	mergeTemperature      = 0.2
)

type MemoryStats struct {
	TotalConversations     int  `json:"totalConversations"`
	AlreadyProcessed       int  `json:"alreadyProcessed"`
	UnprocessedFound       int  `json:"unprocessedFound"`
	ConversationsProcessed int  `json:"conversationsProcessed"`
	SkippedTooShort        int  `json:"skippedTooShort"`
	MessagesProcessed      int  `json:"messagesProcessed"`
	HasMore                bool `json:"hasMore"`
	RemainingConversations int  `json:"remainingConversations"`
}

type MemoryService interface {
	// ProcessMemory extracts memory from one batch of unprocessed
	// conversations and merges it into the user's canonical memory.
	// Batching is caller-driven: the stats tell the caller whether to
	// call again with a new offset. No internal continuation.
	ProcessMemory(ctx context.Context, userID uuid.UUID, offset int) (map[string]any, *MemoryStats, error)
	GetLatest(ctx context.Context, userID uuid.UUID) (*types.MemorySnapshot, error)
}

type memoryService struct {
	db  *gorm.DB
	log *logger.Logger

	conversationRepo repos.ConversationRepo
	messageRepo      repos.MessageRepo
	memoryRepo       repos.MemoryRepo
	profileRepo      repos.UserProfileRepo

	prompts PromptService
	ai      AIClient
}

func NewMemoryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	conversationRepo repos.ConversationRepo,
	messageRepo repos.MessageRepo,
	memoryRepo repos.MemoryRepo,
	profileRepo repos.UserProfileRepo,
	prompts PromptService,
	ai AIClient,
) MemoryService {
	return &memoryService{
		db:               db,
		log:              baseLog.With("service", "MemoryService"),
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		memoryRepo:       memoryRepo,
		profileRepo:      profileRepo,
		prompts:          prompts,
		ai:               ai,
	}
}

func (s *memoryService) GetLatest(ctx context.Context, userID uuid.UUID) (*types.MemorySnapshot, error) {
	return s.memoryRepo.GetLatestByUserID(ctx, nil, userID)
}

func (s *memoryService) ProcessMemory(ctx context.Context, userID uuid.UUID, offset int) (map[string]any, *MemoryStats, error) {
	if userID == uuid.Nil {
		return nil, nil, fmt.Errorf("missing userId")
	}
	if offset < 0 {
		offset = 0
	}

	conversations, err := s.conversationRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load conversations: %w", err)
	}

	snapshots, err := s.memoryRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load memory snapshots: %w", err)
	}

	processed := make(map[uuid.UUID]bool)
	for _, snap := range snapshots {
		for _, id := range decodeConversationIDs(snap.ConversationIDs) {
			processed[id] = true
		}
	}

	unprocessed := make([]*types.Conversation, 0, len(conversations))
	for _, conv := range conversations {
		if conv == nil {
			continue
		}
		if !processed[conv.ID] {
			unprocessed = append(unprocessed, conv)
		}
	}

	stats := &MemoryStats{
		TotalConversations: len(conversations),
		AlreadyProcessed:   len(conversations) - len(unprocessed),
		UnprocessedFound:   len(unprocessed),
	}

	if len(unprocessed) == 0 {
		return nil, stats, nil
	}

	start := offset
	if start > len(unprocessed) {
		start = len(unprocessed)
	}
	end := start + memoryBatchSize
	if end > len(unprocessed) {
		end = len(unprocessed)
	}
	batch := unprocessed[start:end]
	stats.RemainingConversations = len(unprocessed) - end
	stats.HasMore = stats.RemainingConversations > 0

	if len(batch) == 0 {
		return nil, stats, nil
	}

	batchIDs := make([]uuid.UUID, 0, len(batch))
	for _, conv := range batch {
		batchIDs = append(batchIDs, conv.ID)
	}

	messagesByConv, err := s.messageRepo.GetByConversationIDs(ctx, nil, batchIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load messages: %w", err)
	}

	var transcripts []string
	for _, conv := range batch {
		msgs := messagesByConv[conv.ID]
		if !IsQualityConversation(msgs) {
			stats.SkippedTooShort++
			continue
		}
		stats.ConversationsProcessed++
		stats.MessagesProcessed += len(msgs)
		transcripts = append(transcripts, formatTranscript(msgs))
	}

	latest, err := s.memoryRepo.GetLatestByUserID(ctx, nil, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load latest memory: %w", err)
	}

	var canonical map[string]any
	if len(transcripts) > 0 {
		extracted, err := s.extract(ctx, strings.Join(transcripts, "\n---\n"))
		if err != nil {
			return nil, nil, err
		}
		canonical, err = s.merge(ctx, latest, extracted)
		if err != nil {
			return nil, nil, err
		}
	} else {
		// whole batch was below the quality floor: fold the ids in so the
		// conversations are not rescanned, but keep the memory as-is
		canonical = snapshotMemoryObject(latest)
	}

	if err := s.persistSnapshot(ctx, userID, latest, canonical, batchIDs, processed, stats.MessagesProcessed); err != nil {
		return nil, nil, err
	}

	s.refreshInstructionsSummary(ctx, userID, canonical)

	return canonical, stats, nil
}

func (s *memoryService) extract(ctx context.Context, transcript string) (map[string]any, error) {
	systemPrompt, err := s.prompts.ResolveContent(ctx, PromptCategoryMemoryExtractionSystem)
	if err != nil {
		return nil, err
	}
	userTemplate, err := s.prompts.ResolveContent(ctx, PromptCategoryMemoryExtractionUser)
	if err != nil {
		return nil, err
	}

	raw, err := s.ai.Chat(ctx, []AIMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fillPrompt(userTemplate, transcript)},
	}, &AIOptions{Temperature: extractionTemperature})
	if err != nil {
		return nil, fmt.Errorf("memory extraction call: %w", err)
	}

	obj, ok := modeljson.Parse(raw)
	if !ok {
		// unparsable output degrades to a raw-text wrapper, never fails
		// the batch
		s.log.Warn("Extraction output was not valid JSON, storing raw text")
		return map[string]any{"raw_memory": raw}, nil
	}
	return obj, nil
}

func (s *memoryService) merge(ctx context.Context, latest *types.MemorySnapshot, extracted map[string]any) (map[string]any, error) {
	existing := snapshotMemoryObject(latest)
	if len(existing) == 0 {
		return extracted, nil
	}

	systemPrompt, err := s.prompts.ResolveContent(ctx, PromptCategoryMemoryMergeSystem)
	if err != nil {
		return nil, err
	}
	userTemplate, err := s.prompts.ResolveContent(ctx, PromptCategoryMemoryMergeUser)
	if err != nil {
		return nil, err
	}

	existingJSON, _ := json.MarshalIndent(existing, "", "  ")
	newJSON, _ := json.MarshalIndent(extracted, "", "  ")

	raw, err := s.ai.Chat(ctx, []AIMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fillPrompt(userTemplate, string(existingJSON), string(newJSON))},
	}, &AIOptions{Temperature: mergeTemperature})
	if err != nil {
		return nil, fmt.Errorf("memory merge call: %w", err)
	}

	merged, ok := modeljson.Parse(raw)
	if !ok {
		// fall back to the pre-merge extraction rather than dropping it
		s.log.Warn("Merge output was not valid JSON, keeping new extraction")
		return extracted, nil
	}
	return merged, nil
}

func (s *memoryService) persistSnapshot(
	ctx context.Context,
	userID uuid.UUID,
	latest *types.MemorySnapshot,
	memory map[string]any,
	batchIDs []uuid.UUID,
	processed map[uuid.UUID]bool,
	newMessages int,
) error {
	if memory == nil {
		memory = map[string]any{}
	}

	idSet := make(map[uuid.UUID]bool, len(processed)+len(batchIDs))
	for id := range processed {
		idSet[id] = true
	}
	for _, id := range batchIDs {
		idSet[id] = true
	}
	allIDs := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		allIDs = append(allIDs, id)
	}

	memoryJSON, err := json.Marshal(memory)
	if err != nil {
		return fmt.Errorf("marshal memory: %w", err)
	}
	idsJSON, err := json.Marshal(allIDs)
	if err != nil {
		return fmt.Errorf("marshal conversation ids: %w", err)
	}

	messageCount := newMessages
	if latest != nil {
		messageCount += latest.MessageCount
	}

	snapshot := &types.MemorySnapshot{
		ID:                uuid.New(),
		UserID:            userID,
		Memory:            datatypes.JSON(memoryJSON),
		ConversationIDs:   datatypes.JSON(idsJSON),
		ConversationCount: len(allIDs),
		MessageCount:      messageCount,
		GeneratedAt:       time.Now(),
	}
	if _, err := s.memoryRepo.Create(ctx, nil, snapshot); err != nil {
		return fmt.Errorf("create memory snapshot: %w", err)
	}
	return nil
}

// refreshInstructionsSummary keeps user_profiles.ai_instructions_summary
// in step with the canonical memory. Best-effort: a failure here must
// not fail the extraction batch.
func (s *memoryService) refreshInstructionsSummary(ctx context.Context, userID uuid.UUID, memory map[string]any) {
	if len(memory) == 0 {
		return
	}
	summary, err := json.Marshal(memory)
	if err != nil {
		return
	}
	if err := s.profileRepo.UpdateFields(ctx, nil, userID, map[string]interface{}{
		"ai_instructions_summary": string(summary),
	}); err != nil {
		s.log.Warn("Failed to refresh instructions summary", "user_id", userID, "error", err)
	}
}

// IsQualityConversation applies the extraction quality filter.
func IsQualityConversation(msgs []*types.Message) bool {
	if len(msgs) < minTotalMessages {
		return false
	}
	userMessages := 0
	userChars := 0
	for _, m := range msgs {
		if m == nil {
			continue
		}
		if m.Role == "user" {
			userMessages++
			userChars += len(m.Content)
		}
	}
	return userMessages >= minUserMessages && userChars >= minUserContentLength
}

func formatTranscript(msgs []*types.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m == nil {
			continue
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func snapshotMemoryObject(snap *types.MemorySnapshot) map[string]any {
	if snap == nil || len(snap.Memory) == 0 {
		return map[string]any{}
	}
	var obj map[string]any
	if err := json.Unmarshal(snap.Memory, &obj); err != nil {
		return map[string]any{}
	}
	return obj
}

func decodeConversationIDs(raw datatypes.JSON) []uuid.UUID {
	if len(raw) == 0 {
		return nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil
	}
	return ids
}

// fillPrompt substitutes content blocks into a prompt template. When
// the template carries the expected number of %s placeholders they are
// filled in order; otherwise the blocks are appended, so a custom
// prompt saved without placeholders still sees the content.
func fillPrompt(template string, blocks ...string) string {
	if strings.Count(template, "%s") == len(blocks) && len(blocks) > 0 {
		args := make([]any, len(blocks))
		for i, b := range blocks {
			args[i] = b
		}
		return fmt.Sprintf(template, args...)
	}
	var b strings.Builder
	b.WriteString(template)
	for _, block := range blocks {
		b.WriteString("\n\n")
		b.WriteString(block)
	}
	return b.String()
}

package services

// Hard-coded fallback prompts. Resolution falls back here whenever no
// active prompt row exists for a category, so AI calls never run with
// an empty prompt.

const PromptCategoryMemoryExtractionSystem = "memory_extraction_system"
const PromptCategoryMemoryExtractionUser = "memory_extraction_user"
const PromptCategoryMemoryMergeSystem = "memory_merge_system"
const PromptCategoryMemoryMergeUser = "memory_merge_user"
const PromptCategorySummarySheetSystem = "summary_sheet_system"
const PromptCategorySummarySheetUser = "summary_sheet_user"
const PromptCategoryGreetingTranslationSystem = "greeting_translation_system"

// SavePromptAllowedCategories is the fixed allow-list for the
// save-prompt endpoint.
var SavePromptAllowedCategories = map[string]bool{
	PromptCategoryMemoryExtractionSystem:    true,
	PromptCategoryMemoryExtractionUser:      true,
	PromptCategoryMemoryMergeSystem:         true,
	PromptCategoryMemoryMergeUser:           true,
	PromptCategorySummarySheetSystem:        true,
	PromptCategorySummarySheetUser:          true,
	PromptCategoryGreetingTranslationSystem: true,
}

var defaultPrompts = map[string]string{
	PromptCategoryMemoryExtractionSystem: `You are a careful assistant that builds a structured memory profile of a user from their past conversations with a mental-health companion. Return only valid JSON with keys such as "personal_details", "health_concerns", "coping_strategies", "goals", "preferences" and "relationships". Extract only what the user explicitly said. No commentary.`,

	PromptCategoryMemoryExtractionUser: `Below are one or more conversations between the user and the companion, separated by "---". Extract a JSON memory object describing what was learned about the user.

%s`,

	PromptCategoryMemoryMergeSystem: `You merge two JSON memory profiles of the same user into one. Keep every durable fact, prefer newer information when the two conflict, and drop nothing that still appears true. Return only the merged JSON object.`,

	PromptCategoryMemoryMergeUser: `Existing memory:
%s

New memory:
%s

Return the merged memory as a single JSON object.`,

	PromptCategorySummarySheetSystem: `You write a warm hand-off summary sheet for a human provider, based on a user's conversation history with a mental-health companion. Only cover the sections listed by the caller; the user has not consented to anything else. Be factual, compassionate and concise. Plain text, with one heading per section.`,

	PromptCategorySummarySheetUser: `Sections the user consented to: %s

Conversation history:
%s`,

	PromptCategoryGreetingTranslationSystem: `Translate the given greeting into the requested language. Keep the tone warm and informal. Return only the translated text.`,
}

// DefaultPrompt returns the fallback content for a category and
// whether one exists.
func DefaultPrompt(category string) (string, bool) {
	content, ok := defaultPrompts[category]
	return content, ok
}

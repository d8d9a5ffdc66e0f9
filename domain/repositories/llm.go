package repositories

import "context"

// PromptSuggestions are follow-up ideas shown after a generation
type PromptSuggestions struct {
	Suggestions         []string `json:"suggestions"`
	ContinuationPrompts []string `json:"continuationPrompts"`
}

// PromptSuggester abstracts any chat/LLM provider used to propose prompt
// improvements and quick variations
type PromptSuggester interface {
	Suggest(ctx context.Context, prompt string) (PromptSuggestions, error)
}

package llm

import (
	"context"

	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
)

var (
	staticSuggestions = []string{
		"Try more specific musical terms (e.g., 'cinematic orchestral suite', 'heroic brass fanfare')",
		"Add tempo descriptors ('allegro', 'andante', 'presto')",
		"Specify instruments ('full symphony orchestra', 'piano and strings', 'brass ensemble')",
		"Include mood descriptors ('triumphant', 'mysterious', 'uplifting', 'dramatic')",
		"Use professional terminology ('crescendo', 'fortissimo', 'legato')",
	}

	staticContinuations = []string{
		"Add dramatic crescendo and powerful brass section",
		"Include soaring violin melodies and timpani rolls",
		"Build to an epic finale with full orchestra",
		"Add heroic themes with French horns and trumpets",
		"Create cinematic tension with rising dynamics",
	}
)

// StaticSuggester returns a fixed set of prompt tips
type StaticSuggester struct{}

var _ repositories.PromptSuggester = StaticSuggester{}

// Suggest implements PromptSuggester interface
func (StaticSuggester) Suggest(ctx context.Context, prompt string) (repositories.PromptSuggestions, error) {
	return StaticSuggestions(), nil
}

// StaticSuggestions returns fresh copies of the built-in lists
func StaticSuggestions() repositories.PromptSuggestions {
	return repositories.PromptSuggestions{
		Suggestions:         append([]string(nil), staticSuggestions...),
		ContinuationPrompts: append([]string(nil), staticContinuations...),
	}
}

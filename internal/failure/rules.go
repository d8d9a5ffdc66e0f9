package failure

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
)

// RulesVersion changes whenever the rule table changes. New rules are
// appended; existing ones are never reordered.
const RulesVersion = 1

type rule struct {
	kind    Kind
	matches func(c *classification) bool
	build   func(c *classification) *Error
}

// classification is the input every rule inspects
type classification struct {
	err        error
	message    string // lowercased
	rawMessage string
	prompt     string
}

var rules = []rule{
	{
		kind:    KindContentBlocked,
		matches: func(c *classification) bool { return containsAny(c.message, "recitation", "blocked", "content safety") },
		build:   contentBlocked,
	},
	{
		kind:    KindServiceUnavailable,
		matches: func(c *classification) bool { return containsAny(c.message, "quota", "permission_denied", "exceeded", "rate limit") },
		build:   serviceUnavailable,
	},
	{
		kind:    KindArtistReference,
		matches: func(c *classification) bool { return c.isClientError() && mentionsArtist(c.prompt) },
		build:   artistReference,
	},
	{
		kind:    KindGenerationFailed,
		matches: func(c *classification) bool { return c.isClientError() || errors.Is(c.err, repositories.ErrEmptyResult) },
		build:   generationFailed,
	},
}

var artistPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)in the style of ([\w\s]+)`),
	regexp.MustCompile(`(?i)by ([\w\s]+)`),
	regexp.MustCompile(`(?i)sounds like ([\w\s]+)`),
	regexp.MustCompile(`(?i)a mix of ([\w\s]+) and ([\w\s]+)`),
	regexp.MustCompile(`(?i)inspired by ([\w\s]+)`),
	regexp.MustCompile(`(?i)Ed Sheeran`),
	regexp.MustCompile(`(?i)Taylor Swift`),
	regexp.MustCompile(`(?i)The Beatles`),
	regexp.MustCompile(`(?i)John Williams`),
}

// Classify maps a generation error to a user-facing error. A nil error or an
// error that is already classified is handled too.
func Classify(err error, userPrompt string) *Error {
	if err == nil {
		return unexpected(&classification{prompt: userPrompt, rawMessage: "unknown error"})
	}
	if fe, ok := As(err); ok {
		return fe
	}

	c := &classification{
		err:        err,
		message:    strings.ToLower(err.Error()),
		rawMessage: err.Error(),
		prompt:     userPrompt,
	}
	fe := classify(c)
	fe.cause = err
	return fe
}

// ClassifyMessage classifies a raw provider message
func ClassifyMessage(message, userPrompt string) *Error {
	return classify(&classification{
		message:    strings.ToLower(message),
		rawMessage: message,
		prompt:     userPrompt,
	})
}

func classify(c *classification) *Error {
	for _, r := range rules {
		if r.matches(c) {
			return r.build(c)
		}
	}
	return unexpected(c)
}

func (c *classification) isClientError() bool {
	var sc StatusCoder
	if c.err != nil && errors.As(c.err, &sc) {
		if s := sc.HTTPStatus(); s >= 400 && s < 500 {
			return true
		}
	}
	return containsAny(c.message, "status 4", "400", "invalid_argument")
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func mentionsArtist(prompt string) bool {
	for _, p := range artistPatterns {
		if p.MatchString(prompt) {
			return true
		}
	}
	return false
}

func contentBlocked(c *classification) *Error {
	const text = "Your prompt was blocked by content safety filters. This can happen when the prompt might generate music too similar to existing copyrighted works."
	return &Error{
		Kind:    KindContentBlocked,
		Status:  http.StatusBadRequest,
		Text:    text,
		Message: text + " Try rephrasing your prompt to be more unique and creative.",
		Suggestions: []string{
			`Try "cinematic orchestral composition" instead of "epic orchestral piece"`,
			`Use specific instruments: "brass fanfare with timpani" or "string quartet with piano"`,
			`Add technical terms: "allegro symphonic movement" or "dramatic crescendo with full orchestra"`,
			`Focus on mood: "triumphant heroic theme" or "mysterious atmospheric soundscape"`,
			"Avoid generic phrases - be more creative and specific with your descriptions",
			`Try "grand symphonic overture" or "powerful orchestral suite" instead`,
		},
		UserPrompt: c.prompt,
	}
}

func serviceUnavailable(c *classification) *Error {
	const text = "The music generation service is temporarily unavailable."
	return &Error{
		Kind:       KindServiceUnavailable,
		Status:     http.StatusServiceUnavailable,
		Text:       text,
		Message:    text + " Please try again later.",
		UserPrompt: c.prompt,
	}
}

func artistReference(c *classification) *Error {
	return &Error{
		Kind:    KindArtistReference,
		Status:  http.StatusBadRequest,
		Text:    "Your prompt was blocked because it referenced a specific artist.",
		Message: `Prompts containing references to specific artists (e.g., "in the style of Ed Sheeran") are not allowed to protect artist rights. Please remove the artist's name and describe the musical style instead.`,
		Suggestions: []string{
			`Instead of "in the style of Ed Sheeran", try "modern acoustic pop with heartfelt lyrics and intricate guitar".`,
			"Describe the instrumentation, tempo, and mood of the music you want.",
			"Focus on musical characteristics rather than artist names.",
		},
		UserPrompt: c.prompt,
	}
}

func generationFailed(c *classification) *Error {
	return &Error{
		Kind:    KindGenerationFailed,
		Status:  http.StatusBadRequest,
		Text:    "Music generation failed.",
		Message: "Music generation failed. Please try a different prompt or adjust your parameters.",
		Suggestions: []string{
			"Try simplifying your prompt",
			"Reduce the duration if it's very long",
			"Check your temperature setting (0.1-1.0)",
			"Try a different creative approach",
		},
		UserPrompt: c.prompt,
	}
}

func unexpected(c *classification) *Error {
	return &Error{
		Kind:       KindUnexpected,
		Status:     http.StatusInternalServerError,
		Text:       "An unexpected error occurred during music generation.",
		Message:    fmt.Sprintf("Music generation failed due to an unexpected error: %s", c.rawMessage),
		UserPrompt: c.prompt,
	}
}

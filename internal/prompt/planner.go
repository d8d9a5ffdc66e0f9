package prompt

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
)

const (
	// MaxPromptChars is the provider limit on prompt length
	MaxPromptChars = 2000

	ellipsis = "..."

	emptyPartPrompt = "Continue the musical piece in the same style."
)

// Planner builds segment plans
type Planner struct {
	logger *zap.Logger
}

// NewPlanner creates a new planner
func NewPlanner(logger *zap.Logger) *Planner {
	return &Planner{logger: logger}
}

// Plan splits the requested duration into contiguous segments. When parts is
// non-empty every part becomes one segment of equal length and its text is
// sent verbatim. Otherwise the track is cut into 30 second segments and the
// prompt is wrapped with production and continuation directives.
func (p *Planner) Plan(requestedDuration int, userPrompt string, parts []string) entities.SegmentPlan {
	total := float64(requestedDuration)

	if len(parts) > 0 {
		return p.planStructured(total, parts)
	}
	return p.planUnstructured(total, userPrompt)
}

func (p *Planner) planStructured(total float64, parts []string) entities.SegmentPlan {
	n := len(parts)
	segmentDuration := total / float64(n)

	plan := entities.SegmentPlan{
		TotalDuration:   total,
		SegmentDuration: segmentDuration,
		Structured:      true,
		Segments:        make([]entities.PlannedSegment, 0, n),
	}

	for i, part := range parts {
		text := part
		if text == "" {
			text = emptyPartPrompt
		}

		start := float64(i) * segmentDuration
		end := float64(i+1) * segmentDuration
		if i == n-1 {
			end = total
		}

		plan.Segments = append(plan.Segments, entities.PlannedSegment{
			Index:           i,
			StartTime:       start,
			EndTime:         end,
			DurationSeconds: end - start,
			PromptText:      part,
			EffectivePrompt: p.Truncate(text),
			IsContinuation:  i > 0,
		})
	}

	return plan
}

func (p *Planner) planUnstructured(total float64, userPrompt string) entities.SegmentPlan {
	n := int(math.Ceil(total / entities.MaxSegmentSeconds))
	if n < 1 {
		n = 1
	}

	plan := entities.SegmentPlan{
		TotalDuration:   total,
		SegmentDuration: entities.MaxSegmentSeconds,
		Segments:        make([]entities.PlannedSegment, 0, n),
	}

	for i := 0; i < n; i++ {
		start := float64(i * entities.MaxSegmentSeconds)
		end := start + entities.MaxSegmentSeconds
		if i == n-1 {
			end = total
		}

		plan.Segments = append(plan.Segments, entities.PlannedSegment{
			Index:           i,
			StartTime:       start,
			EndTime:         end,
			DurationSeconds: end - start,
			PromptText:      userPrompt,
			EffectivePrompt: p.Truncate(Enhance(userPrompt, i)),
			IsContinuation:  i > 0,
		})
	}

	return plan
}

// Enhance wraps the prompt of an unstructured segment. The first segment asks
// for studio quality, later ones for a seamless continuation.
func Enhance(userPrompt string, index int) string {
	if index == 0 {
		return fmt.Sprintf("High-quality professional recording: %s. Rich instrumentation, clear sound, studio quality.", userPrompt)
	}
	return fmt.Sprintf("Continue the musical piece: %s. Maintain the same style, tempo, and key signature for seamless continuation.", userPrompt)
}

// Truncate limits a prompt to MaxPromptChars characters, replacing the tail
// with an ellipsis
func (p *Planner) Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxPromptChars {
		return text
	}

	p.logger.Warn("Prompt too long, truncating",
		zap.Int("length", len(runes)),
		zap.Int("max_length", MaxPromptChars))

	return string(runes[:MaxPromptChars-len(ellipsis)]) + ellipsis
}

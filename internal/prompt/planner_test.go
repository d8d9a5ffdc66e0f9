package prompt

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap/zaptest"
)

func TestPlanUnstructuredBoundaries(t *testing.T) {
	planner := NewPlanner(zaptest.NewLogger(t))

	for d := 1; d <= 300; d++ {
		plan := planner.Plan(d, "lofi hip hop", nil)

		wantSegments := int(math.Ceil(float64(d) / 30))
		if len(plan.Segments) != wantSegments {
			t.Fatalf("duration %d: expected %d segments, got %d", d, wantSegments, len(plan.Segments))
		}

		if plan.Segments[0].StartTime != 0 {
			t.Errorf("duration %d: first segment starts at %v", d, plan.Segments[0].StartTime)
		}

		prevEnd := 0.0
		for i, seg := range plan.Segments {
			if seg.StartTime != prevEnd {
				t.Errorf("duration %d: segment %d starts at %v, previous ended at %v", d, i, seg.StartTime, prevEnd)
			}
			if seg.EndTime <= seg.StartTime {
				t.Errorf("duration %d: segment %d is not increasing", d, i)
			}
			if i < len(plan.Segments)-1 && seg.DurationSeconds != 30 {
				t.Errorf("duration %d: segment %d lasts %v, expected 30", d, i, seg.DurationSeconds)
			}
			prevEnd = seg.EndTime
		}

		if prevEnd != float64(d) {
			t.Errorf("duration %d: last segment ends at %v", d, prevEnd)
		}
	}
}

func TestPlanUnstructuredPrompts(t *testing.T) {
	planner := NewPlanner(zaptest.NewLogger(t))
	plan := planner.Plan(75, "jazz trio", nil)

	if plan.Structured {
		t.Error("Expected unstructured plan")
	}
	if len(plan.Segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(plan.Segments))
	}

	first := plan.Segments[0]
	if first.EffectivePrompt != "High-quality professional recording: jazz trio. Rich instrumentation, clear sound, studio quality." {
		t.Errorf("Unexpected first prompt: %s", first.EffectivePrompt)
	}
	if first.IsContinuation {
		t.Error("First segment must not be a continuation")
	}

	for _, seg := range plan.Segments[1:] {
		if seg.EffectivePrompt != "Continue the musical piece: jazz trio. Maintain the same style, tempo, and key signature for seamless continuation." {
			t.Errorf("Unexpected continuation prompt: %s", seg.EffectivePrompt)
		}
		if !seg.IsContinuation {
			t.Errorf("Segment %d should be a continuation", seg.Index)
		}
		if seg.PromptText != "jazz trio" {
			t.Errorf("Expected original prompt text, got %s", seg.PromptText)
		}
	}

	if plan.Segments[2].DurationSeconds != 15 {
		t.Errorf("Expected last segment of 15s, got %v", plan.Segments[2].DurationSeconds)
	}
}

func TestPlanStructured(t *testing.T) {
	planner := NewPlanner(zaptest.NewLogger(t))
	parts := []string{"soft piano intro", "", "epic finale"}

	plan := planner.Plan(100, "ignored", parts)

	if !plan.Structured {
		t.Error("Expected structured plan")
	}
	if len(plan.Segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(plan.Segments))
	}

	want := 100.0 / 3
	if math.Abs(plan.SegmentDuration-want) > 1e-9 {
		t.Errorf("Expected segment duration %v, got %v", want, plan.SegmentDuration)
	}

	if plan.Segments[0].EffectivePrompt != "soft piano intro" {
		t.Errorf("Structured prompts must be sent verbatim, got %s", plan.Segments[0].EffectivePrompt)
	}
	if plan.Segments[1].EffectivePrompt != "Continue the musical piece in the same style." {
		t.Errorf("Empty part should fall back, got %s", plan.Segments[1].EffectivePrompt)
	}
	if plan.Segments[2].EndTime != 100 {
		t.Errorf("Expected plan to end at 100, got %v", plan.Segments[2].EndTime)
	}
	if plan.Segments[1].StartTime != plan.Segments[0].EndTime {
		t.Error("Structured segments must be contiguous")
	}
	if plan.Segments[0].RequestSeconds() != 33 {
		t.Errorf("Expected provider duration 33, got %d", plan.Segments[0].RequestSeconds())
	}
}

func TestTruncate(t *testing.T) {
	planner := NewPlanner(zaptest.NewLogger(t))

	short := "ambient drone"
	if got := planner.Truncate(short); got != short {
		t.Errorf("Short prompt changed: %s", got)
	}

	exact := strings.Repeat("a", MaxPromptChars)
	if got := planner.Truncate(exact); got != exact {
		t.Error("Prompt at the limit must not be truncated")
	}

	long := strings.Repeat("é", MaxPromptChars+500)
	got := planner.Truncate(long)
	if utf8.RuneCountInString(got) != MaxPromptChars {
		t.Errorf("Expected %d characters, got %d", MaxPromptChars, utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("Truncated prompt should end with an ellipsis")
	}
}

func TestPlanTruncatesEffectivePrompts(t *testing.T) {
	planner := NewPlanner(zaptest.NewLogger(t))
	plan := planner.Plan(60, strings.Repeat("x", 3000), nil)

	for _, seg := range plan.Segments {
		if utf8.RuneCountInString(seg.EffectivePrompt) > MaxPromptChars {
			t.Errorf("Segment %d prompt exceeds the limit", seg.Index)
		}
	}
}

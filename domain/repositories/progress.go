package repositories

import "time"

// ProgressEventType names a step of a running generation
type ProgressEventType string

const (
	ProgressGenerationStarted   ProgressEventType = "generation_started"
	ProgressSegmentStarted      ProgressEventType = "segment_started"
	ProgressSegmentCompleted    ProgressEventType = "segment_completed"
	ProgressGenerationCompleted ProgressEventType = "generation_completed"
	ProgressGenerationFailed    ProgressEventType = "generation_failed"
)

// ProgressEvent reports pipeline progress to whoever watches a session
type ProgressEvent struct {
	Type          ProgressEventType `json:"type"`
	SessionID     string            `json:"session_id"`
	SegmentIndex  int               `json:"segment_index,omitempty"`
	TotalSegments int               `json:"total_segments"`
	ErrorType     string            `json:"error_type,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// ProgressNotifier receives progress events. Publish must not block.
type ProgressNotifier interface {
	Publish(event ProgressEvent)
}

package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the role of a message sender
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

const (
	// DefaultSessionTitle is used when a session is created without a title
	DefaultSessionTitle = "New Music Session"

	// variationCostPerUnit is the price of one 30-second unit of a variation
	variationCostPerUnit = 0.03
)

// GenerationMetadata describes one completed generation. It is created once
// and never mutated after the message carrying it is appended.
type GenerationMetadata struct {
	Duration       float64 `json:"duration"`
	Model          string  `json:"model"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negativePrompt,omitempty"`
	Seed           *int    `json:"seed,omitempty"`
	Version        int     `json:"version"`
	ParentID       string  `json:"parentId,omitempty"`
	Cost           float64 `json:"cost"`

	// Response-only fields, populated by the generation pipeline
	Segments        int     `json:"segments,omitempty"`
	SegmentDuration float64 `json:"segmentDuration,omitempty"`
	Concatenated    bool    `json:"concatenated"`
	TotalSize       int     `json:"totalSize,omitempty"`
}

// Clone returns a copy that shares no pointers with m
func (m *GenerationMetadata) Clone() *GenerationMetadata {
	if m == nil {
		return nil
	}
	c := *m
	if m.Seed != nil {
		seed := *m.Seed
		c.Seed = &seed
	}
	return &c
}

// Message is a single chat message. Messages are immutable once appended.
type Message struct {
	ID        string              `json:"id"`
	Role      MessageRole         `json:"role"`
	Content   string              `json:"content"`
	Timestamp time.Time           `json:"timestamp"`
	MusicURL  string              `json:"musicUrl,omitempty"`
	Metadata  *GenerationMetadata `json:"metadata,omitempty"`
}

// MessageDraft is a message before the store assigns its id and timestamp
type MessageDraft struct {
	Role     MessageRole
	Content  string
	MusicURL string
	Metadata *GenerationMetadata
}

// Validate validates the draft before it is appended
func (d MessageDraft) Validate() error {
	if d.Role != MessageRoleUser && d.Role != MessageRoleAssistant {
		return errors.New("invalid message role")
	}
	return nil
}

// ChatSession is a conversation holding generated music and its lineage
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	TotalCost float64   `json:"totalCost"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewChatSession creates an empty session with zero cost
func NewChatSession(title string) *ChatSession {
	if title == "" {
		title = DefaultSessionTitle
	}
	return &ChatSession{
		ID:        uuid.New().String(),
		Title:     title,
		Messages:  make([]Message, 0),
		TotalCost: 0,
		CreatedAt: time.Now(),
	}
}

// AddMessage turns the draft into an immutable message, appends it and
// accumulates the cost of assistant generations
func (s *ChatSession) AddMessage(draft MessageDraft) Message {
	message := Message{
		ID:        uuid.New().String(),
		Role:      draft.Role,
		Content:   draft.Content,
		Timestamp: time.Now(),
		MusicURL:  draft.MusicURL,
		Metadata:  draft.Metadata.Clone(),
	}

	s.Messages = append(s.Messages, message)

	if message.Role == MessageRoleAssistant && message.Metadata != nil && message.Metadata.Cost != 0 {
		s.TotalCost += message.Metadata.Cost
	}

	return message
}

// FindMessage returns the message with the given id
func (s *ChatSession) FindMessage(id string) (Message, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Clone returns a deep copy so callers never alias store-owned state
func (s *ChatSession) Clone() *ChatSession {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		m.Metadata = m.Metadata.Clone()
		c.Messages[i] = m
	}
	return &c
}

// VariationMetadata applies the lineage overrides of a variation to freshly
// generated metadata. Variations are billed at a reduced per-unit rate.
func VariationMetadata(parent Message, generated GenerationMetadata) GenerationMetadata {
	v := generated
	if parent.Metadata == nil {
		return v
	}

	parentVersion := parent.Metadata.Version
	// An unversioned parent counts as version 1, so its first variation is 2
	if parentVersion == 0 {
		parentVersion = 1
	}

	v.Cost = (parent.Metadata.Duration / SegmentUnitSeconds) * variationCostPerUnit
	v.Version = parentVersion + 1
	v.ParentID = parent.ID
	return v
}

package model

import "time"

// Role identifies the author of a chat turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of a conversation with the assistant.
// Messages are kept in insertion order (ID is monotonic per database).
type ChatMessage struct {
	ID        uint  `gorm:"primaryKey"`
	ChatID    int64 `gorm:"index"`
	Role      Role
	Text      string
	CreatedAt time.Time
}

func (m ChatMessage) IsUser() bool {
	return m.Role == RoleUser
}

// ParsedIntent is what the intent parser extracted from an assistant reply.
// It is never persisted.
type ParsedIntent struct {
	Task       string      `json:"task,omitempty"`
	Date       string      `json:"date,omitempty"` // TODAY, TOMORROW or YYYY-MM-DD, unresolved
	Recurrence *Recurrence `json:"recurrence,omitempty"`
	Text       string      `json:"text"`
	Anomalies  []string    `json:"anomalies,omitempty"`
}

// HasTask reports whether a task creation request was found.
func (p ParsedIntent) HasTask() bool {
	return p.Task != ""
}

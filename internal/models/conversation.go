package models

import "time"

type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
)

// ConversationHistory groups the turns of one chat session. The primary key
// is the caller-supplied conversation id, so lazy creation on the first
// message of an unknown id is a plain upsert-by-lookup.
type ConversationHistory struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Title     string    `gorm:"column:title;type:text" json:"title"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;index" json:"updated_at"`
}

func (ConversationHistory) TableName() string { return "conversation_histories" }

type ConversationMessage struct {
	ID             string      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ConversationID string      `gorm:"column:conversation_id;type:uuid;index" json:"conversation_id"`
	Role           MessageRole `gorm:"column:role;type:text" json:"role"`
	Content        string      `gorm:"column:content;type:text" json:"content"`
	CreatedAt      time.Time   `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (ConversationMessage) TableName() string { return "conversation_messages" }

package model

import "time"

// 回复来源标识，与 n8n 边缘函数的 source 字段保持一致
const (
	SourceWebhook = "webhook"
	SourceLocal   = "local"
)

type SubmitResponse struct {
	SessionID   string        `json:"session_id"`
	MessageID   string        `json:"message_id"`
	Reply       string        `json:"reply"`
	Source      string        `json:"source"`
	Timestamp   int64         `json:"timestamp"`
	Requirement *Requirement  `json:"requirement,omitempty"`
	Filter      *SearchFilter `json:"filter,omitempty"`
}

type SessionResponse struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

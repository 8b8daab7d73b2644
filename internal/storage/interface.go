package storage

import (
	"ryze-backend/internal/model"
)

type Storage interface {
	// 会话管理
	CreateSession(session *model.Session) error
	GetSession(sessionID string) (*model.Session, error)
	UpdateSession(session *model.Session) error
	DeleteSession(sessionID string) error
	ListSessions() ([]*model.Session, error)

	// 消息管理
	AddMessage(sessionID string, message *model.Message) error
	GetMessages(sessionID string) ([]*model.Message, error)

	// 存储管理
	Init() error
	Close() error
}

// cloneSession 返回会话快照，调用方拿到的 Messages 不随后续写入变化
func cloneSession(session *model.Session) *model.Session {
	snapshot := *session
	snapshot.Messages = append([]model.Message(nil), session.Messages...)
	return &snapshot
}

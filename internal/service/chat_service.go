package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ryze-backend/internal/compose"
	"ryze-backend/internal/config"
	"ryze-backend/internal/delegate"
	"ryze-backend/internal/extract"
	"ryze-backend/internal/filter"
	"ryze-backend/internal/model"
	"ryze-backend/internal/storage"
	"ryze-backend/pkg/logger"
)

var (
	ErrSessionBusy   = errors.New("session has a message in flight")
	ErrSessionClosed = errors.New("session is closed")
	ErrEmptyMessage  = errors.New("message is empty")
)

// FilterSink 列表组件的接入口，需求首次成型时推送一次筛选对象
type FilterSink interface {
	Publish(sessionID string, f model.SearchFilter)
}

type logSink struct{}

func (logSink) Publish(sessionID string, f model.SearchFilter) {
	logger.Infof("发布搜索筛选: session=%s category=%q price_range=%q", sessionID, f.Category, f.PriceRange)
}

// sessionState 单个会话的内存态。
// awaiting 实现 Idle/Awaiting 状态机：同一会话同时只处理一条消息。
type sessionState struct {
	mu        sync.Mutex
	awaiting  bool
	closed    bool
	current   model.Requirement
	published bool
	filter    *model.SearchFilter
}

type ChatService struct {
	storage  storage.Storage
	history  *storage.HistoryStore
	gateway  *delegate.Gateway
	composer *compose.Composer
	sink     FilterSink
	cfg      *config.Config

	mu     sync.Mutex
	states map[string]*sessionState
}

func NewChatService(cfg *config.Config) *ChatService {
	var store storage.Storage

	if cfg.Storage.Type == "disk" {
		store = storage.NewDiskStorage(cfg.Storage.DataDir, cfg.Storage.CacheSize)
	} else {
		store = storage.NewMemoryStorage()
	}

	if err := store.Init(); err != nil {
		logger.Errorf("Failed to initialize storage: %v", err)
		store = storage.NewMemoryStorage()
		store.Init()
	}

	history := storage.NewHistoryStore(cfg.History.Path, cfg.History.Cap)
	if err := history.Init(); err != nil {
		// 历史日志是尽力而为的，坏了不拦启动
		logger.Warnf("历史日志初始化失败: %v", err)
	}

	composer := compose.New(rand.New(rand.NewSource(time.Now().UnixNano())))

	s := &ChatService{
		storage:  store,
		history:  history,
		composer: composer,
		sink:     logSink{},
		cfg:      cfg,
		states:   make(map[string]*sessionState),
	}

	s.gateway = delegate.NewGateway(delegate.Config{
		WebhookURL: cfg.Delegate.WebhookURL,
		Timeout:    cfg.Delegate.Timeout,
	}, s.localReply)

	go s.cleanupOldSessions()

	return s
}

// SetFilterSink 替换下游列表组件的接入口，测试和接线用
func (s *ChatService) SetFilterSink(sink FilterSink) {
	if sink != nil {
		s.sink = sink
	}
}

func (s *ChatService) localReply(text string) string {
	return s.composer.Reply(text, extract.Extract(text))
}

func (s *ChatService) CreateSession(title string) (*model.Session, error) {
	// 时间戳加随机后缀，不需要中心分配器
	sessionID := fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])

	if title == "" {
		title = "New conversation " + time.Now().Format("2006-01-02 15:04")
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages: []model.Message{
			{
				ID:        uuid.NewString(),
				SessionID: sessionID,
				Role:      model.RoleAssistant,
				Content:   compose.Greeting,
				Timestamp: now,
			},
		},
	}

	if err := s.storage.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (s *ChatService) GetSession(sessionID string) (*model.Session, error) {
	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (s *ChatService) GetSessionMessages(sessionID string) ([]model.Message, error) {
	messages, err := s.storage.GetMessages(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	result := make([]model.Message, len(messages))
	for i, msg := range messages {
		result[i] = *msg
	}

	return result, nil
}

func (s *ChatService) GetAllSessions() ([]*model.Session, error) {
	sessions, err := s.storage.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, nil
}

func (s *ChatService) DeleteSession(sessionID string) error {
	if err := s.storage.DeleteSession(sessionID); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return fmt.Errorf("%w: %s", storage.ErrSessionNotFound, sessionID)
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.mu.Lock()
	delete(s.states, sessionID)
	s.mu.Unlock()

	return nil
}

// CloseSession 会话卸载。在途的 webhook 调用允许跑完，
// 但结果会被丢弃，关闭之后不再写任何存储。
// 未知会话直接报错，不为它建内存态。
func (s *ChatService) CloseSession(sessionID string) error {
	if _, err := s.GetSession(sessionID); err != nil {
		return err
	}

	st := s.state(sessionID)
	st.mu.Lock()
	st.closed = true
	st.mu.Unlock()
	return nil
}

// state 取或建会话内存态。只能在确认会话存在之后调用，
// 否则任意会话 ID 都会在 states 里留下永久条目。
func (s *ChatService) state(sessionID string) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.states[sessionID]
	if !exists {
		st = &sessionState{}
		s.states[sessionID] = st
	}
	return st
}

// lookupState 只读查找，未知会话返回 nil 而不是新建条目
func (s *ChatService) lookupState(sessionID string) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[sessionID]
}

// Submit 处理一条用户消息：入库、提取、委派、回复入库，
// 需求首次成型时投影筛选对象并推送给列表组件。
func (s *ChatService) Submit(ctx context.Context, sessionID, text string) (*model.SubmitResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		// 空消息在提取之前就拒绝，不入库也不发起委派
		return nil, ErrEmptyMessage
	}

	if _, err := s.GetSession(sessionID); err != nil {
		return nil, err
	}

	st := s.state(sessionID)

	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if st.awaiting {
		// 上一条还没回来，拒绝并发提交，回复顺序必须等于提交顺序
		st.mu.Unlock()
		return nil, ErrSessionBusy
	}
	st.awaiting = true
	st.mu.Unlock()

	userMsg := &model.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	}
	if err := s.storage.AddMessage(sessionID, userMsg); err != nil {
		st.mu.Lock()
		st.awaiting = false
		st.mu.Unlock()
		return nil, fmt.Errorf("failed to add message: %w", err)
	}

	// 需求合并放在用户消息落库之后：没被接收的消息不能留下需求状态
	req := extract.Extract(text)
	st.mu.Lock()
	wasTrivial := st.current.Trivial()
	st.current = st.current.Merge(req)
	merged := st.current
	st.mu.Unlock()

	// 唯一的挂起点：要么打 webhook，要么本地生成
	result := s.gateway.Deliver(ctx, text, sessionID)

	st.mu.Lock()
	defer func() {
		st.awaiting = false
		st.mu.Unlock()
	}()

	if st.closed {
		// 卸载后的在途结果直接丢弃，不再写任何存储
		logger.Debugf("会话 %s 已关闭，丢弃在途回复", sessionID)
		return nil, ErrSessionClosed
	}

	assistantMsg := &model.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   result.Reply,
		Timestamp: time.Now(),
	}
	if err := s.storage.AddMessage(sessionID, assistantMsg); err != nil {
		logger.Errorf("Failed to add assistant message: %v", err)
	}

	s.appendHistory(sessionID, userMsg)
	s.appendHistory(sessionID, assistantMsg)

	resp := &model.SubmitResponse{
		SessionID: sessionID,
		MessageID: assistantMsg.ID,
		Reply:     result.Reply,
		Source:    result.Source,
		Timestamp: assistantMsg.Timestamp.Unix(),
	}

	if !merged.Trivial() {
		requirement := merged
		resp.Requirement = &requirement

		f := filter.Project(merged)
		st.filter = &f
		resp.Filter = &f

		// 需求从无到有的那次转变才推送下游，后续更新由读取端拉取
		if wasTrivial && !st.published {
			st.published = true
			s.sink.Publish(sessionID, f)
		}
	}

	return resp, nil
}

// appendHistory 历史日志写失败只记日志，对话继续
func (s *ChatService) appendHistory(sessionID string, msg *model.Message) {
	err := s.history.Append(sessionID, storage.HistoryEntry{
		MessageID: msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		logger.Warnf("历史日志写入失败: %v", err)
	}
}

// CurrentFilter 最新的筛选投影；需求未成型或会话未知时返回零值和 false
func (s *ChatService) CurrentFilter(sessionID string) (model.SearchFilter, bool) {
	st := s.lookupState(sessionID)
	if st == nil {
		return model.SearchFilter{}, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.filter == nil {
		return model.SearchFilter{}, false
	}
	return *st.filter, true
}

// RecentHistory 读取共享历史日志
func (s *ChatService) RecentHistory(limit int) []storage.HistoryEntry {
	return s.history.LoadRecent(limit)
}

func (s *ChatService) cleanupOldSessions() {
	if s.cfg.Session.CleanupInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.cfg.Session.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.sweepExpired()
	}
}

// sweepExpired 删除超过 TTL 的会话，连同它的内存态一起清掉
func (s *ChatService) sweepExpired() {
	sessions, err := s.storage.ListSessions()
	if err != nil {
		logger.Errorf("Failed to list sessions for cleanup: %v", err)
		return
	}

	cutoff := time.Now().Add(-s.cfg.Session.TTL)
	for _, session := range sessions {
		if !session.UpdatedAt.Before(cutoff) {
			continue
		}

		if err := s.storage.DeleteSession(session.ID); err != nil {
			logger.Errorf("Failed to delete expired session %s: %v", session.ID, err)
			continue
		}

		s.mu.Lock()
		delete(s.states, session.ID)
		s.mu.Unlock()

		logger.Infof("清理过期会话: %s", session.ID)
	}
}

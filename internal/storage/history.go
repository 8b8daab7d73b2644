package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// HistoryEntry 诊断日志条目，不是审计记录
type HistoryEntry struct {
	SessionID string    `json:"session_id"`
	MessageID string    `json:"message_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryStore 跨会话共享的追加式消息日志，总量封顶，FIFO 淘汰。
// 持久化失败只向调用方返回错误，调用方记日志后继续，不阻塞会话。
type HistoryStore struct {
	path    string
	cap     int
	mu      sync.Mutex
	entries []HistoryEntry
}

func NewHistoryStore(path string, cap int) *HistoryStore {
	if cap <= 0 {
		cap = 100
	}
	return &HistoryStore{path: path, cap: cap}
}

// Init 加载已持久化的日志，文件缺失按空日志处理
func (h *HistoryStore) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			h.entries = nil
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if err := json.Unmarshal(data, &h.entries); err != nil {
		// 文件损坏时丢弃旧日志，诊断日志不值得为它启动失败
		h.entries = nil
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	h.trim()
	return nil
}

// Append 单条写入是原子的：内存先追加并截断，再整体落盘
func (h *HistoryStore) Append(sessionID string, entry HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry.SessionID = sessionID
	h.entries = append(h.entries, entry)
	h.trim()

	if err := h.save(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	return nil
}

// LoadRecent 返回最近的 limit 条，结果内部保持从旧到新
func (h *HistoryStore) LoadRecent(limit int) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > len(h.entries) {
		limit = len(h.entries)
	}

	recent := make([]HistoryEntry, limit)
	copy(recent, h.entries[len(h.entries)-limit:])
	return recent
}

func (h *HistoryStore) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
	if err := h.save(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (h *HistoryStore) trim() {
	if len(h.entries) > h.cap {
		h.entries = h.entries[len(h.entries)-h.cap:]
	}
}

func (h *HistoryStore) save() error {
	data, err := json.MarshalIndent(h.entries, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(h.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return writeFileAtomic(h.path, data)
}

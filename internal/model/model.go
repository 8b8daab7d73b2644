package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Requirement 从用户消息中提取的结构化需求，每条用户消息重新计算一次
type Requirement struct {
	Category   string   `json:"category,omitempty"`
	TechStack  []string `json:"tech_stack,omitempty"`
	Features   []string `json:"features,omitempty"`
	Budget     string   `json:"budget,omitempty"`
	SourceText string   `json:"source_text,omitempty"`
}

// Empty 没有命中任何词表且没有预算时为真
func (r Requirement) Empty() bool {
	return r.Category == "" && len(r.TechStack) == 0 && len(r.Features) == 0 && r.Budget == ""
}

// Trivial 类目为空且技术栈为空时为真，此时不触发筛选投影
func (r Requirement) Trivial() bool {
	return r.Category == "" && len(r.TechStack) == 0
}

// Merge 按字段合并新提取结果：新值非空则覆盖，为空保留旧值
func (r Requirement) Merge(next Requirement) Requirement {
	merged := r
	if next.Category != "" {
		merged.Category = next.Category
	}
	if len(next.TechStack) > 0 {
		merged.TechStack = next.TechStack
	}
	if len(next.Features) > 0 {
		merged.Features = next.Features
	}
	if next.Budget != "" {
		merged.Budget = next.Budget
	}
	if next.SourceText != "" {
		merged.SourceText = next.SourceText
	}
	return merged
}

// SearchFilter 列表组件的入参结构，对应前端的 search_filters
type SearchFilter struct {
	Category   string `json:"category,omitempty"`
	PriceRange string `json:"priceRange,omitempty"`
}

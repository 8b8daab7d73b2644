// Package compose 本地回复生成，延迟端点不可用或未配置时的兜底路径。
package compose

import (
	"fmt"
	"math/rand"
	"strings"

	"ryze-backend/internal/model"
)

// Greeting 新会话的开场白，与前端聊天组件一致
const Greeting = "Hi! I'm here to help you find the perfect project. What kind of project are you looking for?"

const clarifyPrompt = "I'd love to help you find the right project! Could you tell me more about what you're looking for? For example, what type of project (e-commerce, portfolio, dashboard), what technologies you prefer (React, Next.js, etc.), and your budget range?"

// metaTopic 平台相关问题的关键词组和固定话术，按声明顺序匹配
type metaTopic struct {
	keywords []string
	reply    string
}

var metaTopics = []metaTopic{
	{
		keywords: []string{"how", "work", "platform"},
		reply: "RYZE is a marketplace for ready-made projects. Browse listings by category, " +
			"buy a project that fits, or post a custom work request and we'll match you with developers. " +
			"Tell me what you're building and I'll find options for you.",
	},
	{
		keywords: []string{"price", "cost", "budget"},
		// 报价话术里的项目数量是展示用的伪随机数
		reply: "Our projects range from ₹5,000 for simple templates to ₹50,000+ for complex applications. " +
			"We currently have %d projects listed. What's your budget range?",
	},
	{
		keywords: []string{"support", "help"},
		reply: "Every purchase includes seller support and documentation. If anything breaks, " +
			"you can message the seller directly from your dashboard. What project can I help you find?",
	},
	{
		keywords: []string{"custom", "hire"},
		reply: "You can request custom work! Describe what you need on the Custom Work page and " +
			"we'll match you with suitable developers. Or tell me your requirements and I'll check for ready-made matches first.",
	},
	{
		keywords: []string{"sell", "upload"},
		reply: "Want to sell on RYZE? Upload your project from the Sell page with screenshots, " +
			"a description, and your price. Once approved it goes live in the marketplace.",
	},
}

// Composer 生成回复文本。除报价话术里的项目数量外完全确定，
// 随机源通过构造函数注入以便测试固定。
type Composer struct {
	rng *rand.Rand
}

func New(rng *rand.Rand) *Composer {
	return &Composer{rng: rng}
}

// Reply 不做 I/O，不会失败，返回值永远非空。
// 选择顺序：需求摘要（类目或技术栈非空）→ 平台话术 → 澄清提问。
// 平台关键词只在消息没带任何需求信号时生效，带信号的消息走摘要。
func (c *Composer) Reply(text string, req model.Requirement) string {
	if !req.Trivial() {
		return c.summarize(req)
	}

	lower := strings.ToLower(text)
	for _, topic := range metaTopics {
		for _, keyword := range topic.keywords {
			if strings.Contains(lower, keyword) {
				if strings.Contains(topic.reply, "%d") {
					return fmt.Sprintf(topic.reply, c.projectCount())
				}
				return topic.reply
			}
		}
	}

	return clarifyPrompt
}

func (c *Composer) summarize(req model.Requirement) string {
	var b strings.Builder
	b.WriteString("Great! I found some key requirements:\n\n")

	if req.Category != "" {
		b.WriteString("• Category: " + req.Category + "\n")
	}
	if len(req.TechStack) > 0 {
		b.WriteString("• Tech Stack: " + strings.Join(req.TechStack, ", ") + "\n")
	}
	if len(req.Features) > 0 {
		b.WriteString("• Features: " + strings.Join(req.Features, ", ") + "\n")
	}
	if req.Budget != "" {
		b.WriteString("• Budget: ₹" + req.Budget + "\n")
	}

	b.WriteString("\nLet me search for matching projects...")
	return b.String()
}

func (c *Composer) projectCount() int {
	if c.rng == nil {
		return 150
	}
	return 150 + c.rng.Intn(350)
}

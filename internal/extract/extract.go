// Package extract 从自由文本中提取结构化的项目需求。
package extract

import (
	"strings"

	"ryze-backend/internal/model"
	"ryze-backend/internal/vocab"
)

// Extract 纯函数，对任意输入都不会失败。
// 类目取词表中第一个命中的条目；技术栈和功能收集全部命中项，
// 结果顺序为词表声明顺序而不是输入文本顺序。
func Extract(text string) model.Requirement {
	lower := strings.ToLower(text)

	req := model.Requirement{SourceText: text}

	for _, category := range vocab.Categories {
		if strings.Contains(lower, category) {
			req.Category = category
			break
		}
	}

	for _, tech := range vocab.TechStacks {
		if strings.Contains(lower, tech) {
			req.TechStack = append(req.TechStack, tech)
		}
	}

	for _, feature := range vocab.Features {
		if strings.Contains(lower, feature) {
			req.Features = append(req.Features, feature)
		}
	}

	if match := vocab.BudgetPattern.FindString(lower); match != "" {
		req.Budget = match
	}

	return req
}

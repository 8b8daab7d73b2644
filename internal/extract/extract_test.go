package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCategoryFirstMatchWins(t *testing.T) {
	// 文本里同时出现 dashboard 和 blog，词表顺序里 dashboard 在前
	req := Extract("A blog with a dashboard for admins")
	assert.Equal(t, "dashboard", req.Category)
}

func TestExtractCaseInsensitive(t *testing.T) {
	req := Extract("Looking for a PORTFOLIO site")
	assert.Equal(t, "portfolio", req.Category)
}

func TestExtractCollectsAllTechAndFeatures(t *testing.T) {
	req := Extract("react frontend, python backend, with payment and chat")
	assert.Equal(t, []string{"react", "python"}, req.TechStack)
	assert.Equal(t, []string{"payment", "chat"}, req.Features)
}

func TestExtractTechOrderFollowsVocabulary(t *testing.T) {
	// 输入顺序故意反过来，结果仍按词表顺序
	req := Extract("tailwind before react here")
	assert.Equal(t, []string{"react", "tailwind"}, req.TechStack)
}

func TestExtractBudgetVariants(t *testing.T) {
	assert.Equal(t, "15000", Extract("budget 15000").Budget)
	assert.Equal(t, "15k", Extract("budget around 15k").Budget)
	// 千分位写法下正则的左侧分支先命中，保留源实现的行为
	assert.Equal(t, "15", Extract("budget 15,000").Budget)
}

func TestExtractEmptyRecord(t *testing.T) {
	req := Extract("hello")
	assert.True(t, req.Empty())
	assert.Equal(t, "hello", req.SourceText)
}

func TestExtractSubstringOverMatch(t *testing.T) {
	// 纯子串匹配的已知行为："reaction" 会命中 "react"
	req := Extract("what a strange reaction")
	assert.Equal(t, []string{"react"}, req.TechStack)
}

func TestExtractScenario(t *testing.T) {
	req := Extract("I need an e-commerce site with React, budget 15k")
	assert.Equal(t, "e-commerce", req.Category)
	assert.Equal(t, []string{"react"}, req.TechStack)
	assert.Equal(t, "15k", req.Budget)
}

func TestExtractIsDeterministic(t *testing.T) {
	a := Extract("vue dashboard with api, 8000")
	b := Extract("vue dashboard with api, 8000")
	assert.Equal(t, a, b)
}

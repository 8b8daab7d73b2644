// Package filter 把需求记录投影成列表组件理解的筛选对象。
package filter

import (
	"strconv"
	"strings"

	"ryze-backend/internal/model"
)

// priceBucket 预算分桶表，区间左闭右开，token 与购买页下拉选项一致。
// 这是一份配置而不是隐藏逻辑：改动 token 前先对齐列表组件。
type priceBucket struct {
	low   int
	high  int // 0 表示无上限
	token string
}

var priceBuckets = []priceBucket{
	{low: 0, high: 5000, token: "0-5000"},
	{low: 5000, high: 15000, token: "5000-15000"},
	{low: 15000, high: 30000, token: "15000-30000"},
	{low: 30000, high: 0, token: "30000+"},
}

// Project 纯函数：类目直接透传，预算 token 换算成价格区间 token，
// 无法解析成数字的预算原样透传。
func Project(req model.Requirement) model.SearchFilter {
	f := model.SearchFilter{Category: req.Category}

	if req.Budget != "" {
		f.PriceRange = priceRange(req.Budget)
	}

	return f
}

func priceRange(budget string) string {
	amount, ok := parseBudget(budget)
	if !ok {
		return budget
	}

	for _, bucket := range priceBuckets {
		if amount >= bucket.low && (bucket.high == 0 || amount < bucket.high) {
			return bucket.token
		}
	}

	return budget
}

// parseBudget 解析预算 token：k 后缀乘以1000，千分位去掉逗号
func parseBudget(budget string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(budget))
	s = strings.ReplaceAll(s, ",", "")

	multiplier := 1
	if strings.HasSuffix(s, "k") {
		multiplier = 1000
		s = strings.TrimSuffix(s, "k")
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}

	return n * multiplier, true
}

// Package vocab 需求提取用的静态词表，顺序即优先级。
//
// 匹配方式是纯子串匹配，没有词边界检查，和前端实现保持一致。
// 已知的过度匹配风险：例如 "react" 会命中 "reaction"；
// 在产品决策改变之前不要升级为边界感知匹配，否则会改变提取结果。
package vocab

import "regexp"

// Categories 项目类目，声明顺序决定扫描顺序，第一个命中即生效
var Categories = []string{
	"e-commerce",
	"portfolio",
	"dashboard",
	"landing page",
	"blog",
	"saas",
}

// TechStacks 技术栈关键词，全部命中项都会被收集
var TechStacks = []string{
	"react",
	"next.js",
	"vue",
	"angular",
	"node.js",
	"python",
	"tailwind",
}

// Features 功能关键词
var Features = []string{
	"authentication",
	"payment",
	"database",
	"api",
	"chat",
	"admin panel",
}

// BudgetPattern 预算匹配：纯数字、k 后缀或千分位，取第一个匹配
var BudgetPattern = regexp.MustCompile(`(\d+k?|\d+,\d+)`)

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequirementMerge(t *testing.T) {
	current := Requirement{Category: "dashboard", TechStack: []string{"react"}}
	next := Requirement{Budget: "15000", SourceText: "budget is 15000"}

	merged := current.Merge(next)

	assert.Equal(t, "dashboard", merged.Category)
	assert.Equal(t, []string{"react"}, merged.TechStack)
	assert.Equal(t, "15000", merged.Budget)

	// 后到的非空字段覆盖旧值
	override := Requirement{Category: "blog"}
	merged = merged.Merge(override)
	assert.Equal(t, "blog", merged.Category)
	assert.Equal(t, "15000", merged.Budget)
}

func TestRequirementEmptyAndTrivial(t *testing.T) {
	var r Requirement
	assert.True(t, r.Empty())
	assert.True(t, r.Trivial())

	r.Budget = "5000"
	assert.False(t, r.Empty())
	assert.True(t, r.Trivial())

	r.Category = "saas"
	assert.False(t, r.Trivial())
}

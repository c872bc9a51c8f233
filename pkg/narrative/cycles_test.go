package narrative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func TestCyclesForActs(t *testing.T) {
	three, err := CyclesForActs(3)
	require.NoError(t, err)
	assert.Equal(t, []int{CycleTroy, CycleSearch, CycleReturn}, three)

	five, err := CyclesForActs(5)
	require.NoError(t, err)
	assert.Equal(t, []int{CycleTroy, CycleSearch, CycleSacrifice, CycleReturn, CycleTroy}, five)

	_, err = CyclesForActs(4)
	assert.Error(t, err)
}

func TestFallbackActs_ThreeActs(t *testing.T) {
	acts := FallbackActs(ThreeActCycles)
	require.Len(t, acts, 3)
	assert.Equal(t, "The Troy Cycle", acts[0].Title)

	// 3幕構成は各幕4シーン、番号は全体で連番です。
	num := 1
	for _, act := range acts {
		require.Len(t, act.Scenes, 4)
		for _, s := range act.Scenes {
			assert.Equal(t, num, s.Number)
			num++
		}
	}
	assert.Equal(t, 13, num)
}

func TestFallbackActs_FiveActs(t *testing.T) {
	acts := FallbackActs(FiveActCycles)
	require.Len(t, acts, 5)
	assert.Equal(t, acts[0].Title, acts[4].Title) // トロイアで開き、トロイアで閉じます。
	for _, act := range acts {
		assert.Len(t, act.Scenes, 3)
	}
}

func TestNormalize(t *testing.T) {
	acts := []domain.Act{
		{Number: 7, Title: "A", Scenes: []domain.SceneDef{
			{Number: 9, Purpose: "p1"}, {Number: 9, Purpose: "p2"},
		}},
		{Title: "B", Scenes: []domain.SceneDef{
			{Purpose: "p3"}, {Purpose: "p4"}, {Purpose: "p5"}, {Purpose: "p6"},
		}},
	}

	got := Normalize(acts, 3)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Number)
	assert.Equal(t, 2, got[1].Number)

	// 不足は仮シーンで補い、超過は切り捨てます。
	require.Len(t, got[0].Scenes, 3)
	assert.Equal(t, "Scene in A", got[0].Scenes[2].Purpose)
	require.Len(t, got[1].Scenes, 3)
	assert.Equal(t, []int{1, 2, 3}, sceneNumbers(got[0].Scenes))
	assert.Equal(t, []int{4, 5, 6}, sceneNumbers(got[1].Scenes))
}

func sceneNumbers(scenes []domain.SceneDef) []int {
	out := make([]int, len(scenes))
	for i, s := range scenes {
		out[i] = s.Number
	}
	return out
}

func TestCycleLines(t *testing.T) {
	lines := CycleLines([]int{CycleSacrifice})
	require.Len(t, lines, 1)
	assert.Equal(t, "1. The Sacrifice Cycle: "+FourCycles[CycleSacrifice].Description, lines[0])
}

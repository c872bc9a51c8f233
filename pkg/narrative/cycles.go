// Package narrative はボルヘス「四つの円環」に基づく幕構成の骨組みを提供します。
// 円環の定義、3幕・5幕それぞれの円環列、モデル応答が使えないときの決定的な
// フォールバック構成、そして幕・シーン番号の正規化を担当します。
package narrative

import (
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Cycle は1つの円環です。
type Cycle struct {
	Number      int
	Name        string
	Description string
	Themes      []string
}

// 円環番号です。
const (
	CycleTroy = iota + 1
	CycleSearch
	CycleReturn
	CycleSacrifice
)

// FourCycles は4つの円環の定義表です。
var FourCycles = map[int]Cycle{
	CycleTroy: {
		Number:      CycleTroy,
		Name:        "The Troy Cycle",
		Description: "War, destruction, and rebuilding. Conflict, siege, and fall. The cycle of conflict and its aftermath.",
		Themes:      []string{"conflict", "siege", "destruction", "rebuilding", "war", "resistance", "fall"},
	},
	CycleSearch: {
		Number:      CycleSearch,
		Name:        "The Search Cycle",
		Description: "Quest, journey, and discovery. The pursuit of something lost or desired. The cycle of seeking.",
		Themes:      []string{"quest", "journey", "discovery", "seeking", "pursuit", "exploration", "finding"},
	},
	CycleReturn: {
		Number:      CycleReturn,
		Name:        "The Return Cycle",
		Description: "Homecoming, recognition, and restoration. Coming back to where one began. The cycle of return.",
		Themes:      []string{"homecoming", "recognition", "restoration", "return", "reunion", "rediscovery", "coming home"},
	},
	CycleSacrifice: {
		Number:      CycleSacrifice,
		Name:        "The Sacrifice Cycle",
		Description: "Ritual, transformation, and transcendence. Giving up something for a higher purpose. The cycle of sacrifice.",
		Themes:      []string{"sacrifice", "ritual", "transformation", "transcendence", "giving up", "higher purpose", "redemption"},
	},
}

// 幕数ごとの円環列です。5幕ではトロイアで開き、トロイアで閉じます。
var (
	ThreeActCycles = []int{CycleTroy, CycleSearch, CycleReturn}
	FiveActCycles  = []int{CycleTroy, CycleSearch, CycleSacrifice, CycleReturn, CycleTroy}
)

// CyclesForActs は幕数に応じた円環列を返します。3か5以外はエラーです。
func CyclesForActs(actCount int) ([]int, error) {
	switch actCount {
	case 3:
		return ThreeActCycles, nil
	case 5:
		return FiveActCycles, nil
	default:
		return nil, fmt.Errorf("幕数は3または5を指定してください: %d", actCount)
	}
}

// ScenesPerAct は1幕あたりのシーン数です。3幕構成では4、5幕構成では3です。
func ScenesPerAct(actCount int) int {
	if actCount == 3 {
		return 4
	}
	return 3
}

// CycleLines は幕構成プロンプト用に「n. 名前: 説明」形式の行を描画します。
func CycleLines(cycles []int) []string {
	lines := make([]string, 0, len(cycles))
	for i, n := range cycles {
		c := FourCycles[n]
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, c.Name, c.Description))
	}
	return lines
}

// FallbackActs はモデルの幕構成が得られないときの決定的な既定構成です。
func FallbackActs(cycles []int) []domain.Act {
	scenesPerAct := ScenesPerAct(len(cycles))
	acts := make([]domain.Act, 0, len(cycles))
	sceneNum := 1
	for i, n := range cycles {
		c := FourCycles[n]
		scenes := make([]domain.SceneDef, 0, scenesPerAct)
		for j := 0; j < scenesPerAct; j++ {
			scenes = append(scenes, domain.SceneDef{
				Number:  sceneNum,
				Purpose: fmt.Sprintf("Scene %d in %s", j+1, c.Name),
			})
			sceneNum++
		}
		acts = append(acts, domain.Act{
			Number:      i + 1,
			Title:       c.Name,
			Description: c.Description,
			Scenes:      scenes,
		})
	}
	return acts
}

// Normalize はモデルが返した幕構成を整えます。幕番号を振り直し、各幕の
// シーン数を scenesPerAct に揃え（不足は仮シーンで補い、超過は切り捨て）、
// シーン番号を全体で連番にします。
func Normalize(acts []domain.Act, scenesPerAct int) []domain.Act {
	sceneNum := 1
	for i := range acts {
		acts[i].Number = i + 1
		scenes := acts[i].Scenes
		for len(scenes) < scenesPerAct {
			scenes = append(scenes, domain.SceneDef{
				Purpose: fmt.Sprintf("Scene in %s", titleOr(acts[i].Title, "Act")),
			})
		}
		if len(scenes) > scenesPerAct {
			scenes = scenes[:scenesPerAct]
		}
		for j := range scenes {
			scenes[j].Number = sceneNum
			sceneNum++
		}
		acts[i].Scenes = scenes
	}
	return acts
}

func titleOr(title, fallback string) string {
	if title == "" {
		return fallback
	}
	return title
}

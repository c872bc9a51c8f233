package domain

import (
	"encoding/json"
	"fmt"
	"os"
)

// SceneDef は acts.json 内の1シーン分の定義です。
type SceneDef struct {
	Number  int    `json:"number"`
	Purpose string `json:"purpose"`
}

// Act は物語の1幕を表します。
type Act struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Scenes      []SceneDef `json:"scenes"`
}

// ActsFile は acts.json のトップレベル構造です。
type ActsFile struct {
	Acts []Act `json:"acts"`
}

// PlannedScene はシーン生成のために幕のコンテキストを平坦化したものです。
type PlannedScene struct {
	ActNumber      int
	ActTitle       string
	ActDescription string
	SceneNumber    int
	Purpose        string
}

// LoadActs は acts.json を読み込みます。ファイルが無い場合はエラーです
// （シーン生成の必須入力のため、定義ファイルとは扱いが異なります）。
func LoadActs(path string) (*ActsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("actsファイルの読み込みに失敗したのだ (%s): %w", path, err)
	}
	var acts ActsFile
	if err := json.Unmarshal(data, &acts); err != nil {
		return nil, fmt.Errorf("actsJSONのデコードに失敗したのだ (%s): %w", path, err)
	}
	return &acts, nil
}

// SaveActs は acts.json を丸ごと書き直します。
func SaveActs(path string, acts *ActsFile) error {
	data, err := json.MarshalIndent(acts, "", "  ")
	if err != nil {
		return fmt.Errorf("actsJSONのエンコードに失敗したのだ: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Flatten は全幕のシーンを宣言順に並べた一覧を返します。
func (a *ActsFile) Flatten() []PlannedScene {
	var out []PlannedScene
	for _, act := range a.Acts {
		for _, sc := range act.Scenes {
			out = append(out, PlannedScene{
				ActNumber:      act.Number,
				ActTitle:       act.Title,
				ActDescription: act.Description,
				SceneNumber:    sc.Number,
				Purpose:        sc.Purpose,
			})
		}
	}
	return out
}

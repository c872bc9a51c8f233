package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Character は物語に登場するキャラクターの定義を保持します。
// 検出時は名前・別名の大文字小文字を無視して照合しますが、保存上のキーは
// definitions.json のマップキーです。
type Character struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Description string   `json:"description,omitempty"`
	Appearance  string   `json:"appearance,omitempty"`
	Role        string   `json:"role,omitempty"`
	Era         string   `json:"era,omitempty"`
}

// Setting は場所（ロケーション）の定義を保持します。
type Setting struct {
	Name          string   `json:"name"`
	Aliases       []string `json:"aliases,omitempty"`
	Description   string   `json:"description,omitempty"`
	VisualDetails string   `json:"visual_details,omitempty"`
	Era           string   `json:"era,omitempty"`
}

// Extra はキャラクター以外の物理的エンティティ（小道具・乗り物など）の定義です。
type Extra struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Description string   `json:"description,omitempty"`
	Appearance  string   `json:"appearance,omitempty"`
}

// Style は物語全体で共有される視覚スタイルのレコードです。1ストーリーにつき1つです。
type Style struct {
	Description string `json:"description,omitempty"`
	Typeface    string `json:"typeface,omitempty"`
	Inking      string `json:"inking,omitempty"`
	Coloring    string `json:"coloring,omitempty"`
	LineWidth   string `json:"line_width,omitempty"`
	Palette     string `json:"palette,omitempty"`
	Shading     string `json:"shading,omitempty"`
	Texture     string `json:"texture,omitempty"`
}

// Definitions は definitions.json 全体の集約です。
// 実行開始時に一度だけロードされ、実行中は不変として扱います。
type Definitions struct {
	Characters map[string]Character `json:"characters"`
	Settings   map[string]Setting   `json:"settings"`
	Extras     map[string]Extra     `json:"extras"`
	Style      Style                `json:"style"`
}

// NewDefinitions は空の Definitions を生成します。
func NewDefinitions() *Definitions {
	return &Definitions{
		Characters: map[string]Character{},
		Settings:   map[string]Setting{},
		Extras:     map[string]Extra{},
	}
}

// LoadDefinitions は definitions.json を読み込みます。
// ファイルが存在しない場合は空の定義を返します（致命的エラーにはしません）。
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefinitions(), nil
		}
		return nil, fmt.Errorf("定義ファイルの読み込みに失敗したのだ: %w", err)
	}

	defs := NewDefinitions()
	if err := json.Unmarshal(data, defs); err != nil {
		return nil, fmt.Errorf("定義JSONのデコードに失敗したのだ (%s): %w", path, err)
	}
	if defs.Characters == nil {
		defs.Characters = map[string]Character{}
	}
	if defs.Settings == nil {
		defs.Settings = map[string]Setting{}
	}
	if defs.Extras == nil {
		defs.Extras = map[string]Extra{}
	}
	return defs, nil
}

// SaveDefinitions は definitions.json を丸ごと書き直します。
// encoding/json はマップキーをソートして出力するため、内容が同じなら
// 出力バイト列も安定します。
func SaveDefinitions(path string, defs *Definitions) error {
	data, err := json.MarshalIndent(defs, "", "  ")
	if err != nil {
		return fmt.Errorf("定義JSONのエンコードに失敗したのだ: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// MatchNames はマップキー・正式名・別名をまとめた照合用の名前リストを返します。
// 空文字は除外します。
func (c Character) MatchNames(key string) []string {
	return matchNames(key, c.Name, c.Aliases)
}

// MatchNames は Setting 用の照合名リストです。
func (s Setting) MatchNames(key string) []string {
	return matchNames(key, s.Name, s.Aliases)
}

// MatchNames は Extra 用の照合名リストです。
func (e Extra) MatchNames(key string) []string {
	return matchNames(key, e.Name, e.Aliases)
}

func matchNames(key, name string, aliases []string) []string {
	out := make([]string, 0, 2+len(aliases))
	seen := map[string]bool{}
	for _, n := range append([]string{key, name}, aliases...) {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		lower := strings.ToLower(n)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, n)
	}
	return out
}

// SortedCharacterKeys は検出結果を決定的な順序にするためのキー一覧です。
func (d *Definitions) SortedCharacterKeys() []string {
	return sortedKeys(d.Characters)
}

// SortedSettingKeys は Setting のキー一覧をソートして返します。
func (d *Definitions) SortedSettingKeys() []string {
	return sortedKeys(d.Settings)
}

// SortedExtraKeys は Extra のキー一覧をソートして返します。
func (d *Definitions) SortedExtraKeys() []string {
	return sortedKeys(d.Extras)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String はキャラクター情報を簡潔な文字列で返すのだ。
func (c Character) String() string {
	if c.Era != "" {
		return fmt.Sprintf("%s (era: %s)", c.Name, c.Era)
	}
	return c.Name
}

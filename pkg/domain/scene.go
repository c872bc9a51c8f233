package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Scene は生成済みシーンファイルの生テキストです。
// `# Scene N` のヘッダーと、場所や時間の切れ目を示す `## ` セクションを含みます。
// コアのロジックからは読み取り専用として扱います。
type Scene struct {
	ID    string
	Title string
	Text  string
}

// StoryboardChunk はシーンを分割した1コマ分のテキスト断片です。
// 1チャンクが1回の画像生成リクエストに対応します。
type StoryboardChunk struct {
	Title string
	Text  string
}

// SceneFileName はシーン番号からファイル名（scene-0001.md 形式）を組み立てます。
func SceneFileName(number int) string {
	return fmt.Sprintf("scene-%04d.md", number)
}

// SceneIDFromPath はファイルパスからシーンIDを導出します（拡張子抜きのベース名）。
func SceneIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// InferSceneTitle は最初の `## ` セクション見出しをシーンのタイトルとして返します。
// 見出しが無い場合は "Scene" を返します。
func InferSceneTitle(sceneText string) string {
	for _, line := range strings.Split(sceneText, "\n") {
		if strings.HasPrefix(line, "## ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "## "))
		}
	}
	return "Scene"
}

// Package refs は、登場人物・エキストラ・舞台の参照画像キャッシュを管理し、
// 画像生成リクエストへ添付する参照画像の選択と、生成成功後のキャッシュ更新を
// 担当します。キャッシュは JSON ファイルとしてストーリーディレクトリに永続化
// され、互換性のためスキーマは固定です。
package refs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// 参照リストの上限です。先頭が最新になるよう挿入し、超過分は切り捨てます。
const (
	characterListCap   = 10
	extraListCap       = 10
	settingViewListCap = 5
)

// 正準参照画像のファイル名規約です。この接頭辞を持つ画像はそのエンティティの
// 決定的な見た目として扱われ、他の参照より常に優先されます。
const (
	CharacterRefPrefix = "ref-"
	ExtraRefPrefix     = "ref-extra-"
	SettingRefPrefix   = "ref-setting-"
	StyleRefStem       = "ref-style"
)

const (
	characterRefFile = "character_references.json"
	extraRefFile     = "extra_references.json"
	settingRefFile   = "setting_references.json"
)

// View は舞台参照の屋内・屋外の区別です。
type View string

const (
	ViewIndoor  View = "indoor"
	ViewOutdoor View = "outdoor"
)

// SettingViews は1つの舞台に対する屋内・屋外それぞれの参照リストです。
type SettingViews struct {
	Indoor  []string `json:"indoor"`
	Outdoor []string `json:"outdoor"`
}

// MarshalJSON は未記録のビューも null ではなく空リストとして書き出します。
// 両ビューが常にリストであることはキャッシュ JSON のスキーマ契約です。
func (v SettingViews) MarshalJSON() ([]byte, error) {
	type plain SettingViews
	p := plain(v)
	if p.Indoor == nil {
		p.Indoor = []string{}
	}
	if p.Outdoor == nil {
		p.Outdoor = []string{}
	}
	return json.Marshal(p)
}

// Library は3種の参照キャッシュとその置き場所ディレクトリを束ねます。
// 正準参照画像（ref-*.png など）も同じディレクトリから探索します。
type Library struct {
	Dir        string
	Characters map[string][]string
	Extras     map[string][]string
	Settings   map[string]*SettingViews
}

// Load は dir 配下の参照 JSON を読み込みます。ファイルの欠如や壊れた JSON は
// 「キャッシュなし」として扱い、エラーにはしません。
func Load(dir string) *Library {
	lib := &Library{
		Dir:        dir,
		Characters: map[string][]string{},
		Extras:     map[string][]string{},
		Settings:   map[string]*SettingViews{},
	}
	loadJSON(filepath.Join(dir, characterRefFile), &lib.Characters)
	loadJSON(filepath.Join(dir, extraRefFile), &lib.Extras)
	loadJSON(filepath.Join(dir, settingRefFile), &lib.Settings)
	return lib
}

func loadJSON(path string, dst any) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	// 壊れた JSON は空キャッシュ扱いにします。dst は呼び出し側で初期化済みです。
	_ = json.Unmarshal(data, dst)
}

// Save は3つの参照 JSON を丸ごと書き直します。encoding/json がマップのキーを
// ソートするため、出力は決定的です。
func (l *Library) Save() error {
	if err := saveJSON(filepath.Join(l.Dir, characterRefFile), l.Characters); err != nil {
		return err
	}
	if err := saveJSON(filepath.Join(l.Dir, extraRefFile), l.Extras); err != nil {
		return err
	}
	return saveJSON(filepath.Join(l.Dir, settingRefFile), l.Settings)
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("参照キャッシュのエンコードに失敗しました: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("参照キャッシュの書き込みに失敗しました (%s): %w", path, err)
	}
	return nil
}

// HasCharacter は名前に対応する参照エントリが存在するかを返します。
// ブートストラップ判定は「キーの有無」のみで行い、リストが空でも存在と
// みなします。
func (l *Library) HasCharacter(name string) bool {
	_, ok := l.Characters[name]
	return ok
}

func (l *Library) HasExtra(name string) bool {
	_, ok := l.Extras[name]
	return ok
}

func (l *Library) HasSetting(name string) bool {
	_, ok := l.Settings[name]
	return ok
}

// InsertCharacter は画像パスを先頭に挿入します。既に含まれるパスは動かさず、
// 上限を超えた分は末尾から落とします。
func (l *Library) InsertCharacter(name, path string) {
	l.Characters[name] = frontInsert(l.Characters[name], path, characterListCap)
}

func (l *Library) InsertExtra(name, path string) {
	l.Extras[name] = frontInsert(l.Extras[name], path, extraListCap)
}

func (l *Library) InsertSetting(name string, view View, path string) {
	views := l.Settings[name]
	if views == nil {
		views = &SettingViews{}
		l.Settings[name] = views
	}
	if view == ViewIndoor {
		views.Indoor = frontInsert(views.Indoor, path, settingViewListCap)
	} else {
		views.Outdoor = frontInsert(views.Outdoor, path, settingViewListCap)
	}
}

func frontInsert(list []string, path string, limit int) []string {
	for _, p := range list {
		if p == path {
			return list
		}
	}
	list = append([]string{path}, list...)
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

// Slug はエンティティ名を正準参照ファイル名用のスラッグに変換します。
// 小文字化し、英数字以外の連続をハイフン1つに畳みます。
func Slug(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// CanonicalCharacterStem は正準参照ファイルの拡張子なし名を返します。
func CanonicalCharacterStem(name string) string {
	return CharacterRefPrefix + Slug(name)
}

func CanonicalExtraStem(name string) string {
	return ExtraRefPrefix + Slug(name)
}

func CanonicalSettingStem(name string, view View) string {
	return SettingRefPrefix + Slug(name) + "-" + string(view)
}

// CanonicalCharacter は正準参照画像のパスを返します。見つからなければ空文字です。
func (l *Library) CanonicalCharacter(name string) string {
	return l.findStem(CanonicalCharacterStem(name))
}

func (l *Library) CanonicalExtra(name string) string {
	return l.findStem(CanonicalExtraStem(name))
}

func (l *Library) CanonicalSetting(name string, view View) string {
	return l.findStem(CanonicalSettingStem(name, view))
}

// StyleReference はディレクトリ直下のマスタースタイル参照 (ref-style.*) を
// 返します。存在すれば全リクエストへ無条件に添付されます。
func (l *Library) StyleReference() string {
	return l.findStem(StyleRefStem)
}

// findStem は Dir 直下から「stem + 拡張子」に一致するファイルを探します。
// ReadDir はソート済みの一覧を返すため、複数拡張子があっても選択は決定的です。
func (l *Library) findStem(stem string) string {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == stem {
			return filepath.Join(l.Dir, name)
		}
	}
	return ""
}

// indoorKeywords に一致した場合のみ屋内と判定します。判定できないチャンクは
// 屋外扱いです。
var indoorKeywords = []string{
	"indoor", "inside", "interior",
	"room", "chamber", "hall", "corridor", "kitchen", "office",
	"ceiling", "doorway", "stairwell", "basement", "attic",
	"tent", "cabin", "cell",
}

// ClassifyView はチャンク本文から屋内・屋外を推定します。
func ClassifyView(text string) View {
	lower := strings.ToLower(text)
	for _, kw := range indoorKeywords {
		if containsWord(lower, kw) {
			return ViewIndoor
		}
	}
	return ViewOutdoor
}

func containsWord(lower, word string) bool {
	from := 0
	for {
		i := strings.Index(lower[from:], word)
		if i < 0 {
			return false
		}
		i += from
		before := i == 0 || !isWordByte(lower[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(lower) || !isWordByte(lower[afterIdx])
		if before && after {
			return true
		}
		from = i + len(word)
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

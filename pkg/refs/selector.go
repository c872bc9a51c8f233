package refs

import "path/filepath"

// DefaultMaxAttachments は1リクエストあたりの添付画像数の既定上限です。
const DefaultMaxAttachments = 8

// Selector はチャンクに居るエンティティから添付参照画像を決定します。
// 正準参照が存在するエンティティはそれ1枚だけを添付し、無い場合は直近の
// ストーリーボード画像を最大2枚（舞台はビューごとに1枚）添付します。
type Selector struct {
	Library        *Library
	MaxAttachments int
}

// NewSelector は Selector を生成します。max が 0 以下なら既定値を使います。
func NewSelector(lib *Library, max int) *Selector {
	if max <= 0 {
		max = DefaultMaxAttachments
	}
	return &Selector{Library: lib, MaxAttachments: max}
}

// recentBoardRefs は正準参照が無い場合に添付する直近画像の枚数です。
const recentBoardRefs = 2

// Select は添付する画像パスのリストを返します。順序は
// スタイル参照 → 登場人物 → エキストラ → 舞台 の順で、絶対パス解決の上で
// 重複を除き、全体上限で打ち切ります。舞台はチャンクのビュー判定
//（屋内か屋外かの片方）だけを参照し、反対側のビューは添付しません。
func (s *Selector) Select(characters, extras, settings []string, view View) []string {
	var picked []string

	if style := s.Library.StyleReference(); style != "" {
		picked = append(picked, style)
	}

	for _, name := range characters {
		picked = append(picked, s.forEntity(
			s.Library.CanonicalCharacter(name), s.Library.Characters[name])...)
	}
	for _, name := range extras {
		picked = append(picked, s.forEntity(
			s.Library.CanonicalExtra(name), s.Library.Extras[name])...)
	}
	for _, name := range settings {
		picked = append(picked, s.forSetting(name, view)...)
	}

	return capList(dedupeByAbsPath(picked), s.MaxAttachments)
}

// forEntity は1エンティティ分の添付候補を返します。正準参照は他の候補を
// すべて抑止します。
func (s *Selector) forEntity(canonical string, recent []string) []string {
	if canonical != "" {
		return []string{canonical}
	}
	if len(recent) > recentBoardRefs {
		recent = recent[:recentBoardRefs]
	}
	return recent
}

// forSetting はビューに対応する舞台参照を1枚選びます。
func (s *Selector) forSetting(name string, view View) []string {
	if canonical := s.Library.CanonicalSetting(name, view); canonical != "" {
		return []string{canonical}
	}
	views := s.Library.Settings[name]
	if views == nil {
		return nil
	}
	list := views.Outdoor
	if view == ViewIndoor {
		list = views.Indoor
	}
	if len(list) == 0 {
		return nil
	}
	return list[:1]
}

// Record は生成成功後の更新です。チャンクに居た全エンティティへ新しい
// ボード画像を先頭挿入し、即座に JSON へフラッシュします。
func (s *Selector) Record(characters, extras, settings []string, view View, boardPath string) error {
	for _, name := range characters {
		s.Library.InsertCharacter(name, boardPath)
	}
	for _, name := range extras {
		s.Library.InsertExtra(name, boardPath)
	}
	for _, name := range settings {
		s.Library.InsertSetting(name, view, boardPath)
	}
	return s.Library.Save()
}

// dedupeByAbsPath は絶対パスに解決した上で重複を除きます。順序は保存します。
func dedupeByAbsPath(paths []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range paths {
		key, err := filepath.Abs(p)
		if err != nil {
			key = filepath.Clean(p)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func capList(list []string, limit int) []string {
	if len(list) > limit {
		return list[:limit]
	}
	return list
}

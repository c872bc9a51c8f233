package detect

import (
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Result は1つのテキスト断片に対する検出結果です。各リスト内で同一の定義
// レコードは高々1回しか現れません。順序は定義キーのソート順で決定的です。
type Result struct {
	Characters []domain.Character
	Settings   []domain.Setting
	Extras     []domain.Extra
}

// CharacterNames は検出されたキャラクター名の一覧を返します（ログ用）。
func (r Result) CharacterNames() []string {
	names := make([]string, 0, len(r.Characters))
	for _, c := range r.Characters {
		names = append(names, c.Name)
	}
	return names
}

// SettingNames は検出された場所名の一覧を返します（ログ用）。
func (r Result) SettingNames() []string {
	names := make([]string, 0, len(r.Settings))
	for _, s := range r.Settings {
		names = append(names, s.Name)
	}
	return names
}

// ExtraNames は検出されたエキストラ名の一覧を返します。
func (r Result) ExtraNames() []string {
	names := make([]string, 0, len(r.Extras))
	for _, e := range r.Extras {
		names = append(names, e.Name)
	}
	return names
}

// Detector はテキストと定義ストアから「視覚的に存在する」エンティティを
// 分類し、時代（era）の整合性を強制します。検出は決して失敗しません。
// 肯定的なシグナルが何も無ければ、単に空の結果を返します。
type Detector struct {
	classifier PresenceClassifier
}

// New は既定のヒューリスティック分類器を持つ Detector を生成します。
func New() *Detector {
	return &Detector{classifier: NewHeuristic(DefaultLexicon())}
}

// NewWithClassifier は分類器を差し替えた Detector を生成します。
func NewWithClassifier(c PresenceClassifier) *Detector {
	return &Detector{classifier: c}
}

// Detect はテキスト断片に視覚的に存在するキャラクター・場所・エクストラを
// 返します。検出された場所の時代集合に合わないキャラクターは、テキスト上
// 名前が現れていても結果から除外します（時代タグの無いキャラクターが
// この規則で除外されることはありません）。
func (d *Detector) Detect(text string, defs *domain.Definitions) Result {
	var res Result

	for _, key := range defs.SortedSettingKeys() {
		setting := defs.Settings[key]
		if d.classifier.SettingPresent(text, setting.MatchNames(key)) {
			res.Settings = append(res.Settings, setting)
		}
	}

	for _, key := range defs.SortedCharacterKeys() {
		char := defs.Characters[key]
		if d.classifier.CharacterPresent(text, char.MatchNames(key)) {
			res.Characters = append(res.Characters, char)
		}
	}

	for _, key := range defs.SortedExtraKeys() {
		extra := defs.Extras[key]
		if d.classifier.ExtraPresent(text, extra.MatchNames(key)) {
			res.Extras = append(res.Extras, extra)
		}
	}

	res.Characters = filterByEra(res.Characters, res.Settings)
	return res
}

// DetectPurpose はシーンの目的文のような短い平叙テキスト向けの変種です。
// 目的文には地の文のような偽陽性の余地がほとんど無いため、近傍コンテキスト
// の要求を外し、名前・別名の単語一致だけで判定します。時代フィルターは
// Detect と同じ規則を適用します。
func (d *Detector) DetectPurpose(purpose string, defs *domain.Definitions) Result {
	var res Result
	lower := strings.ToLower(purpose)

	matches := func(names []string) bool {
		for _, n := range names {
			if len(wholeWordIndices(lower, strings.ToLower(n))) > 0 {
				return true
			}
		}
		return false
	}

	for _, key := range defs.SortedSettingKeys() {
		if setting := defs.Settings[key]; matches(setting.MatchNames(key)) {
			res.Settings = append(res.Settings, setting)
		}
	}
	for _, key := range defs.SortedCharacterKeys() {
		if char := defs.Characters[key]; matches(char.MatchNames(key)) {
			res.Characters = append(res.Characters, char)
		}
	}
	for _, key := range defs.SortedExtraKeys() {
		if extra := defs.Extras[key]; matches(extra.MatchNames(key)) {
			res.Extras = append(res.Extras, extra)
		}
	}

	res.Characters = filterByEra(res.Characters, res.Settings)
	return res
}

// filterByEra は検出済みの場所が示す時代集合に基づいてキャラクターを
// 絞り込みます。時代タグを持つ場所が1つも無い場合は判断材料が無いため、
// 除外は行いません。
func filterByEra(chars []domain.Character, settings []domain.Setting) []domain.Character {
	eras := map[string]bool{}
	for _, s := range settings {
		if s.Era != "" {
			eras[strings.ToLower(s.Era)] = true
		}
	}
	if len(eras) == 0 {
		return chars
	}

	out := chars[:0]
	for _, c := range chars {
		if c.Era == "" || eras[strings.ToLower(c.Era)] {
			out = append(out, c)
		}
	}
	return out
}

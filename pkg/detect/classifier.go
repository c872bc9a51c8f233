package detect

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PresenceClassifier は「テキスト中にエンティティが視覚的に存在するか」を
// 判定する戦略のインターフェースです。正規表現ベースのヒューリスティックは
// 本質的に曖昧なので、将来学習モデル等に差し替えられるよう分離しています。
// names はマップキー・正式名・別名をまとめた照合名リストです。
type PresenceClassifier interface {
	SettingPresent(text string, names []string) bool
	CharacterPresent(text string, names []string) bool
	ExtraPresent(text string, names []string) bool
}

// Heuristic は語彙リストと近傍ウィンドウに基づく既定の分類器です。
// 地の文は「画面外の人物や場所への言及」を多く含むため、誤検出（誤った
// 参照画像の添付や不在キャラクターの描画）を避ける方向、つまり再現率より
// 適合率に寄せた判定を行います。
type Heuristic struct {
	lex Lexicon
}

// NewHeuristic は語彙リストを注入して分類器を生成します。
func NewHeuristic(lex Lexicon) *Heuristic {
	return &Heuristic{lex: lex}
}

// SettingPresent は、場所の名前が「実際の現在地」として現れているかを判定します。
// セクション見出し内での一致、または直前の位置前置詞（at/in/inside/...）が
// 肯定的な根拠になります。回想・比較等を示す語句が近傍にある一致は、他の
// 条件を満たしていても除外します（この除外が最優先です）。
func (h *Heuristic) SettingPresent(text string, names []string) bool {
	lower := strings.ToLower(text)
	headers := headerSpans(text)

	for _, name := range names {
		nameLower := strings.ToLower(name)

		for _, idx := range wholeWordIndices(lower, nameLower) {
			if h.isReferenceContext(lower, idx, len(nameLower)) {
				continue
			}
			if inSpans(headers, idx) {
				return true
			}
			if h.hasLocativeBefore(lower, idx) {
				return true
			}
		}

		// 複数語名称の構成要素での一致は、断片の誤爆（無関係な複合語の一部）
		// を避けるため意図的に保守的な条件を課します。
		words := significantWords(nameLower, h.lex.Stopwords)
		if len(words) < 2 {
			continue
		}
		for _, w := range words {
			for _, idx := range wholeWordIndices(lower, w) {
				if h.isReferenceContext(lower, idx, len(w)) {
					continue
				}
				if h.hasLocativeBefore(lower, idx) {
					return true
				}
				if inSpans(headers, idx) && nearbyContains(lower, idx, headerCorroboration, nameLower) {
					return true
				}
			}
		}
	}
	return false
}

// CharacterPresent は、キャラクターが「描かれるべき存在」として現れているかを
// 判定します。引用符・行動動詞・「代名詞＋動詞」のいずれかが近傍にあることを
// 要求し、複数語名称には構成語の近接一致か固有名詞らしさ（原文での大文字化）を
// 追加で要求します。
func (h *Heuristic) CharacterPresent(text string, names []string) bool {
	lower := strings.ToLower(text)

	for _, name := range names {
		nameLower := strings.ToLower(name)
		words := significantWords(nameLower, h.lex.Stopwords)

		// フルネーム（または単一語名）の一致＋近傍コンテキスト
		for _, idx := range wholeWordIndices(lower, nameLower) {
			if h.hasPresenceContext(lower, idx, len(nameLower)) {
				return true
			}
		}

		if len(words) >= 2 {
			// 構成語2語以上が近接して一致し、いずれかにコンテキストがある場合
			if h.componentsNearby(lower, words) {
				return true
			}
			// 構成語1語のみの一致は、原文で大文字始まり（固有名詞ヒューリス
			// ティック）かつ行動・引用コンテキストがある場合に限り認めます。
			for _, w := range words {
				for _, idx := range wholeWordIndices(lower, w) {
					if capitalizedAt(text, idx) && h.hasPresenceContext(lower, idx, len(w)) {
						return true
					}
				}
			}
		}

		// 最終フォールバック: 4文字以上の名前が引用符か発話動詞の近くに
		// あれば、上の条件を満たさなくても存在とみなします。
		if len(nameLower) >= fallbackNameLen {
			for _, idx := range wholeWordIndices(lower, nameLower) {
				if h.hasSpeechContext(lower, idx, len(nameLower)) {
					return true
				}
			}
		}
	}
	return false
}

// ExtraPresent は完全一致（単語境界つき）のみで判定します。エクストラは
// 希少で具体的な物体であり、コンテキストによる曖昧性解消は偽陰性のリスク
// に見合わないためです。
func (h *Heuristic) ExtraPresent(text string, names []string) bool {
	lower := strings.ToLower(text)
	for _, name := range names {
		if len(wholeWordIndices(lower, strings.ToLower(name))) > 0 {
			return true
		}
	}
	return false
}

// isReferenceContext は一致位置の前後ウィンドウに「言及のみ」を示す語句が
// あるかを調べます。
func (h *Heuristic) isReferenceContext(lower string, idx, nameLen int) bool {
	before := sliceAround(lower, idx-referenceWindowBefore, idx)
	after := sliceAround(lower, idx+nameLen, idx+nameLen+referenceWindowAfter)
	for _, phrase := range h.lex.ReferenceIndicators {
		if containsPhrase(before, phrase) || containsPhrase(after, phrase) {
			return true
		}
	}
	return false
}

// hasLocativeBefore は一致位置の直前ウィンドウに位置前置詞があるかを調べます。
func (h *Heuristic) hasLocativeBefore(lower string, idx int) bool {
	window := sliceAround(lower, idx-locativeWindow, idx)
	for _, prep := range h.lex.LocativePrepositions {
		if len(wholeWordIndices(window, prep)) > 0 {
			return true
		}
	}
	return false
}

// hasPresenceContext は一致位置の前後に、引用符・行動動詞・「代名詞＋動詞」
// のいずれかがあるかを調べます。
func (h *Heuristic) hasPresenceContext(lower string, idx, nameLen int) bool {
	window := sliceAround(lower, idx-contextWindow, idx+nameLen+contextWindow)
	if strings.ContainsAny(window, `"“”`) {
		return true
	}
	for _, verb := range h.lex.ActionVerbs {
		if len(wholeWordIndices(window, verb)) > 0 {
			return true
		}
	}
	return h.pronounThenVerb(window)
}

// hasSpeechContext はフォールバック用の狭い判定です。引用符か、発話動詞に
// 限定したリストのみを見ます。
func (h *Heuristic) hasSpeechContext(lower string, idx, nameLen int) bool {
	window := sliceAround(lower, idx-contextWindow, idx+nameLen+contextWindow)
	if strings.ContainsAny(window, `"“”`) {
		return true
	}
	for _, verb := range h.lex.SpeechVerbs {
		if len(wholeWordIndices(window, verb)) > 0 {
			return true
		}
	}
	return false
}

// pronounThenVerb はウィンドウ内に「主格代名詞の直後（20バイト以内）に
// 行動動詞」が現れるパターンがあるかを調べます。
func (h *Heuristic) pronounThenVerb(window string) bool {
	for _, pron := range h.lex.Pronouns {
		for _, pi := range wholeWordIndices(window, pron) {
			tail := sliceAround(window, pi+len(pron), pi+len(pron)+pronounVerbGap)
			for _, verb := range h.lex.ActionVerbs {
				if len(wholeWordIndices(tail, verb)) > 0 {
					return true
				}
			}
		}
	}
	return false
}

// componentsNearby は構成語のうち2語以上が100バイト以内で一致し、いずれかの
// 一致位置に存在コンテキストがあるかを調べます。
func (h *Heuristic) componentsNearby(lower string, words []string) bool {
	type hit struct {
		idx int
		len int
	}
	var hits []hit
	matched := 0
	for _, w := range words {
		indices := wholeWordIndices(lower, w)
		if len(indices) == 0 {
			continue
		}
		matched++
		for _, idx := range indices {
			hits = append(hits, hit{idx: idx, len: len(w)})
		}
	}
	if matched < 2 {
		return false
	}
	for i := 0; i < len(hits); i++ {
		for j := i + 1; j < len(hits); j++ {
			d := hits[i].idx - hits[j].idx
			if d < 0 {
				d = -d
			}
			if d > componentProximity {
				continue
			}
			if h.hasPresenceContext(lower, hits[i].idx, hits[i].len) ||
				h.hasPresenceContext(lower, hits[j].idx, hits[j].len) {
				return true
			}
		}
	}
	return false
}

// --- テキスト走査ヘルパー ---

// wholeWordIndices は needle の単語境界つき出現位置をすべて返します。
// haystack と needle は小文字化済みであることを前提とします。
func wholeWordIndices(haystack, needle string) []int {
	if needle == "" {
		return nil
	}
	var out []int
	from := 0
	for {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return out
		}
		idx := from + i
		if boundaryBefore(haystack, idx) && boundaryAfter(haystack, idx+len(needle)) {
			out = append(out, idx)
		}
		from = idx + 1
	}
}

func boundaryBefore(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:idx])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, idx int) bool {
	if idx >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[idx:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// containsPhrase は単一語なら単語境界つき、複数語句ならそのままの部分一致で
// 判定します。
func containsPhrase(window, phrase string) bool {
	if strings.ContainsRune(phrase, ' ') {
		return strings.Contains(window, phrase)
	}
	return len(wholeWordIndices(window, phrase)) > 0
}

// headerSpans は `## ` で始まる行のバイト範囲を返します。
func headerSpans(text string) [][2]int {
	var spans [][2]int
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimSuffix(line, "\n")
		if strings.HasPrefix(trimmed, "## ") {
			spans = append(spans, [2]int{offset, offset + len(trimmed)})
		}
		offset += len(line)
	}
	return spans
}

func inSpans(spans [][2]int, idx int) bool {
	for _, sp := range spans {
		if idx >= sp[0] && idx < sp[1] {
			return true
		}
	}
	return false
}

// nearbyContains は idx を中心とした前後 radius バイトの範囲に needle が
// 含まれるかを調べます。
func nearbyContains(lower string, idx, radius int, needle string) bool {
	window := sliceAround(lower, idx-radius, idx+radius)
	return strings.Contains(window, needle)
}

// sliceAround は範囲を文字列長にクランプした部分文字列を返します。
func sliceAround(s string, from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(s) {
		to = len(s)
	}
	if from >= to {
		return ""
	}
	return s[from:to]
}

// significantWords は複数語名称から有意な構成語（4文字以上かつ非ストップ
// ワード）を抽出します。
func significantWords(nameLower string, stopwords map[string]bool) []string {
	var out []string
	for _, w := range strings.Fields(nameLower) {
		w = strings.Trim(w, ",.!?'\"-")
		if len(w) < significantWordLen || stopwords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// capitalizedAt は原文の一致位置が大文字で始まっているかを調べます。
func capitalizedAt(text string, idx int) bool {
	if idx < 0 || idx >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[idx:])
	return unicode.IsUpper(r)
}

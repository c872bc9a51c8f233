package detect

// Lexicon は検出ヒューリスティックが参照する語彙リストの集合です。
// これらのリストは原理的に導出されたものではなく運用で積み上がったもの
// なので、定数ではなく設定データとして保持します。呼び出し側で差し替え
// 可能です。
type Lexicon struct {
	// LocativePrepositions は「その場所に実際にいる」ことを示す前置詞です。
	LocativePrepositions []string
	// ReferenceIndicators は場所が言及されているだけ（回想・比較・出発元など）
	// であることを示す語句です。こちらの判定が常に優先されます。
	ReferenceIndicators []string
	// ActionVerbs はキャラクターが画面内で行動していることを示す動詞です。
	ActionVerbs []string
	// SpeechVerbs は最終フォールバックで使う、発話に限定した狭い動詞リストです。
	SpeechVerbs []string
	// Pronouns は「代名詞＋動詞」パターンの判定に使う主格代名詞です。
	Pronouns []string
	// Stopwords は複数語名称の構成要素として意味を持たない語です。
	Stopwords map[string]bool
}

// 判定ウィンドウ（バイト数）。リスト同様に経験則の値です。
const (
	referenceWindowBefore = 60
	referenceWindowAfter  = 40
	locativeWindow        = 30
	contextWindow         = 50
	pronounVerbGap        = 20
	componentProximity    = 100
	headerCorroboration   = 200
	significantWordLen    = 4
	fallbackNameLen       = 4
)

// DefaultLexicon は最終版スクリプト相当の既定リストを返します。
func DefaultLexicon() Lexicon {
	return Lexicon{
		LocativePrepositions: []string{
			"at", "in", "inside", "outside", "within", "on", "into",
		},
		ReferenceIndicators: []string{
			"from", "toward", "heading toward", "heading to",
			"compared to", "versus", "unlike", "instead of",
			"rather than", "far from", "miles from", "away from",
			"thought of", "dreamed of", "memories of", "stories of",
			"spoke of", "talked about", "remembered",
		},
		ActionVerbs: []string{
			"stood", "walked", "said", "spoke", "sat", "ran", "turned",
			"looked", "watched", "smiled", "laughed", "whispered",
			"shouted", "nodded", "reached", "stepped", "leaned", "knelt",
			"rose", "paused", "stared", "waited", "listened", "asked",
			"answered", "replied", "entered", "crossed", "held",
			"lifted", "pressed", "moved", "breathed",
		},
		SpeechVerbs: []string{
			"said", "asked", "replied", "whispered", "shouted",
			"answered", "muttered",
		},
		Pronouns: []string{"he", "she", "they", "it", "we", "i"},
		Stopwords: map[string]bool{
			"the": true, "of": true, "and": true, "a": true, "an": true,
			"or": true, "to": true, "in": true, "on": true, "at": true,
			"for": true, "with": true, "by": true, "from": true,
			"into": true, "onto": true, "over": true, "under": true,
			"near": true, "is": true, "was": true, "were": true,
			"be": true,
		},
	}
}

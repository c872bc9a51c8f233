package prompts

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/chunker"
)

// パネル数の帯域です。指定が無いときは素材の数から 3〜5 に収めます。
const (
	minPanels = 3
	maxPanels = 5
)

// 素材が足りないときに埋める汎用カット割りです。
var panelPadding = []string{
	"Atmospheric wide shot that reinforces the mood.",
	"Close-up on a key character reaction.",
	"Transition shot that hints at the next beat.",
	"Establishing shot of the environment.",
	"Detail shot showing important visual elements.",
}

var sentenceEnd = regexp.MustCompile(`(?s)^(.*?[.!?])\s`)

// DerivePanelInstructions はチャンク本文からコマ割り指示を導出します。
// セクションがあればセクションごとに先頭2段落の最初の文を、無ければ段落ごとの
// 最初の文を採用します。panelCount が 0 以下なら素材数から帯域内で決めます。
func DerivePanelInstructions(chunkText string, panelCount int) []string {
	var instructions []string

	sections := chunker.ExtractSections(chunkText)
	if len(sections) > 0 {
		for _, sec := range sections {
			paragraphs := nonEmptyParagraphs(sec.Body)
			if len(paragraphs) > 2 {
				paragraphs = paragraphs[:2]
			}
			for _, p := range paragraphs {
				if s := FirstSentence(p); s != "" {
					instructions = append(instructions, fmt.Sprintf("%s: %s", sec.Title, s))
				}
			}
		}
	} else {
		for _, p := range nonEmptyParagraphs(chunkText) {
			if s := FirstSentence(p); s != "" {
				instructions = append(instructions, s)
			}
		}
	}

	if len(instructions) == 0 {
		instructions = []string{"Establish the setting and key characters."}
	}

	if panelCount <= 0 {
		panelCount = len(instructions)
		if panelCount < minPanels {
			panelCount = minPanels
		}
		if panelCount > maxPanels {
			panelCount = maxPanels
		}
	}

	if len(instructions) > panelCount {
		return instructions[:panelCount]
	}
	for len(instructions) < panelCount {
		instructions = append(instructions, panelPadding[(len(instructions)-1)%len(panelPadding)])
	}
	return instructions
}

// FirstSentence は空白を畳んだ上で最初の文を返します。
func FirstSentence(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}
	if m := sentenceEnd.FindStringSubmatch(text + " "); m != nil {
		return m[1]
	}
	return text
}

func nonEmptyParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package chunker はシーンのテキストを、1回の画像生成リクエストに対応する
// 連続した「ストーリーボードチャンク」へ分割します。分割はセクション見出し
// （`## `）または空行区切りの段落を境界とし、段落の途中で切ることはありません。
package chunker

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Options はチャンク数の帯域を制御します。
type Options struct {
	// Min/Max は1シーンあたりのチャンク数の下限・上限です。
	Min int
	Max int
	// SingleChunk が真ならシーン全体を1チャンクにします（帯域より優先）。
	SingleChunk bool
}

// DefaultOptions は既定の帯域（3〜5チャンク）を返します。
func DefaultOptions() Options {
	return Options{Min: 3, Max: 5}
}

// Section はシーン内の1セクション（`## ` 見出しとその本文）です。
type Section struct {
	Title string
	Body  string
}

// dialogueQuoteThreshold 以上の引用符を含むセクションは「会話が濃い」と
// みなし、他のセクションと束ねずに単独チャンクにします。
const dialogueQuoteThreshold = 3

// paragraphQuoteDensity は段落フォールバック時に粒度を細かくする閾値です。
const paragraphQuoteDensity = 2

// ExtractSections はシーンテキストから `## ` セクションを抽出します。
// 最初の見出しより前の行（`# Scene N` ヘッダーなど）は本文を持たないため
// 捨てられます。
func ExtractSections(sceneText string) []Section {
	var sections []Section
	var title string
	var lines []string
	started := false

	flush := func() {
		if started {
			sections = append(sections, Section{
				Title: title,
				Body:  strings.TrimSpace(strings.Join(lines, "\n")),
			})
		}
	}

	for _, line := range strings.Split(sceneText, "\n") {
		if strings.HasPrefix(line, "## ") {
			flush()
			title = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			lines = nil
			started = true
			continue
		}
		lines = append(lines, line)
	}
	flush()
	return sections
}

// Split はシーンを Options の帯域内のチャンク列に分割します。
// 下限を割る場合は最大のチャンクを段落の中点で二分し、上限を超える場合は
// 末尾のチャンクを切り捨てます。この切り捨ては意図的な仕様で、結合による
// 「修正」は行いません。
func Split(sceneText string, opts Options) []domain.StoryboardChunk {
	if opts.SingleChunk {
		return []domain.StoryboardChunk{{
			Title: domain.InferSceneTitle(sceneText),
			Text:  strings.TrimSpace(sceneText),
		}}
	}

	sections := ExtractSections(sceneText)
	var chunks []domain.StoryboardChunk
	if len(sections) > 0 {
		chunks = chunkSections(sections, opts.Max)
	} else {
		chunks = chunkParagraphs(sceneText, opts.Max)
	}

	for len(chunks) < opts.Min {
		if !bisectLargest(&chunks) {
			break
		}
	}
	if len(chunks) > opts.Max {
		chunks = chunks[:opts.Max]
	}
	return chunks
}

// chunkSections はセクションを順に groupSize 個ずつ束ねます。会話が濃い
// セクションは束ねず単独チャンクとして確定します。
func chunkSections(sections []Section, maxChunks int) []domain.StoryboardChunk {
	groupSize := ceilDiv(len(sections), maxChunks)
	if groupSize < 1 {
		groupSize = 1
	}

	var chunks []domain.StoryboardChunk
	var group []Section

	flush := func() {
		if len(group) == 0 {
			return
		}
		chunks = append(chunks, renderSections(group))
		group = nil
	}

	for _, sec := range sections {
		if quoteCount(sec.Body) >= dialogueQuoteThreshold {
			flush()
			chunks = append(chunks, renderSections([]Section{sec}))
			continue
		}
		group = append(group, sec)
		if len(group) >= groupSize {
			flush()
		}
	}
	flush()
	return chunks
}

// renderSections はセクション群をチャンクのテキストに戻します。見出しは
// 必ずチャンク先頭側に再挿入されます。
func renderSections(group []Section) domain.StoryboardChunk {
	parts := make([]string, 0, len(group))
	for _, sec := range group {
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", sec.Title, sec.Body))
	}
	return domain.StoryboardChunk{
		Title: group[0].Title,
		Text:  strings.Join(parts, "\n\n"),
	}
}

// chunkParagraphs はセクションが無いシーンを空行区切りの段落で束ねます。
// 段落あたりの引用符密度が高い場合は1段落1チャンクに粒度を細かくします。
func chunkParagraphs(sceneText string, maxChunks int) []domain.StoryboardChunk {
	paragraphs := splitParagraphs(sceneText)
	if len(paragraphs) == 0 {
		paragraphs = []string{strings.TrimSpace(sceneText)}
	}

	groupSize := ceilDiv(len(paragraphs), maxChunks)
	if groupSize < 1 {
		groupSize = 1
	}
	if averageQuoteDensity(paragraphs) >= paragraphQuoteDensity {
		groupSize = 1
	}

	var chunks []domain.StoryboardChunk
	for i := 0; i < len(paragraphs); i += groupSize {
		end := i + groupSize
		if end > len(paragraphs) {
			end = len(paragraphs)
		}
		chunks = append(chunks, domain.StoryboardChunk{
			Title: fmt.Sprintf("Part %d", len(chunks)+1),
			Text:  strings.Join(paragraphs[i:end], "\n\n"),
		})
	}
	return chunks
}

// bisectLargest は段落2つ以上を持つ最大のチャンクを中点で二分します。
// 分割できるチャンクが無ければ false を返します。
func bisectLargest(chunks *[]domain.StoryboardChunk) bool {
	largest := -1
	largestParas := 1
	for i, c := range *chunks {
		if n := len(splitParagraphs(c.Text)); n > largestParas {
			largest = i
			largestParas = n
		}
	}
	if largest < 0 {
		return false
	}

	target := (*chunks)[largest]
	paragraphs := splitParagraphs(target.Text)
	mid := len(paragraphs) / 2

	first := domain.StoryboardChunk{
		Title: target.Title + " (Part 1)",
		Text:  strings.Join(paragraphs[:mid], "\n\n"),
	}
	second := domain.StoryboardChunk{
		Title: target.Title + " (Part 2)",
		Text:  strings.Join(paragraphs[mid:], "\n\n"),
	}

	out := make([]domain.StoryboardChunk, 0, len(*chunks)+1)
	out = append(out, (*chunks)[:largest]...)
	out = append(out, first, second)
	out = append(out, (*chunks)[largest+1:]...)
	*chunks = out
	return true
}

// splitParagraphs は空行で区切った非空の段落を返します。
// 段落フォールバック経路で `#` 始まりの行（シーンヘッダー）は除外します。
func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "# ") {
			continue
		}
		out = append(out, p)
	}
	return out
}

func averageQuoteDensity(paragraphs []string) int {
	if len(paragraphs) == 0 {
		return 0
	}
	total := 0
	for _, p := range paragraphs {
		total += quoteCount(p)
	}
	return total / len(paragraphs)
}

func quoteCount(s string) int {
	return strings.Count(s, `"`) + strings.Count(s, "“") + strings.Count(s, "”")
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// SceneInput はシーン本文生成用プロンプトの材料です。Characters / Settings
// にはシーンの目的文から検出した時代整合の定義だけを渡します。
type SceneInput struct {
	StoryName      string
	CorePremise    string
	ActNumber      int
	ActTitle       string
	ActDescription string
	SceneNumber    int
	ScenePurpose   string
	PreviousScenes []string
	Characters     []domain.Character
	Settings       []domain.Setting
}

// previousSceneWindow は文脈として持ち越す直前シーン要約の数です。
const previousSceneWindow = 3

// BuildScene はシーン本文の生成プロンプトを組み立てます。
func BuildScene(in SceneInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate a scene for a story called %q. Write in the same style and format as the existing scenes.\n\n", in.StoryName)
	fmt.Fprintf(&b, "Core premise: %s\n\n", in.CorePremise)
	fmt.Fprintf(&b, "Act %d: %s\n", in.ActNumber, in.ActTitle)
	fmt.Fprintf(&b, "Act description: %s\n\n", in.ActDescription)
	fmt.Fprintf(&b, "Scene %d purpose: %s\n", in.SceneNumber, in.ScenePurpose)

	if prev := in.PreviousScenes; len(prev) > 0 {
		if len(prev) > previousSceneWindow {
			prev = prev[len(prev)-previousSceneWindow:]
		}
		b.WriteString("\nPrevious scenes summary:\n")
		for _, s := range prev {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	if len(in.Characters) > 0 {
		b.WriteString("\nCharacters who may appear (keep them consistent with these definitions):\n")
		for _, c := range in.Characters {
			fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
		}
	}
	if len(in.Settings) > 0 {
		b.WriteString("\nSettings that may appear:\n")
		for _, s := range in.Settings {
			fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
		}
	}

	b.WriteString("\nRequirements:\n")
	b.WriteString(`- Write in third person, past tense
- Use descriptive, literary prose
- Include specific sensory details
- Create 2-3 distinct sections with ## headings (time/location markers)
- Each section should be 3-5 paragraphs
- Maintain the tone: avoid reverence, avoid mockery, treat humanity as understandable
- Keep every character inside their own era; never mix eras within one section
- Follow the existing scene format exactly
`)
	fmt.Fprintf(&b, "\nGenerate the complete scene text now, starting with \"# Scene %d\" and including all sections:", in.SceneNumber)

	return b.String()
}

// BuildExpansion はインタビュー回答を肉付けするプロンプトです。
func BuildExpansion(userInput, context string) string {
	var b strings.Builder
	b.WriteString("You are a creative writing assistant helping to develop a narrative structure.\n\n")
	fmt.Fprintf(&b, "Context: %s\n\n", context)
	fmt.Fprintf(&b, "User provided: %s\n\n", userInput)
	b.WriteString("Expand on this with rich, detailed, and creative additions. Fill in missing details while staying true to the user's vision. Be specific and vivid. Return only the expanded content, no explanations or meta-commentary.")
	return b.String()
}

// Package prompts は生成サービスへ渡すプロンプト文字列を決定的に組み立てます。
// 同じ入力からは常に同じ文字列が得られるため、--dry-run での確認とテストが
// 容易になります。
package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// StoryboardInput はストーリーボード1枚分のプロンプト材料です。
type StoryboardInput struct {
	SceneID           string
	SceneTitle        string
	ChunkText         string
	PanelInstructions []string
	Mood              string
	Camera            string
	NegativePrompt    string
	Characters        []domain.Character
	Settings          []domain.Setting
	Extras            []domain.Extra
	Style             domain.Style
}

// BuildStoryboard はコミック画像生成用のプロンプトを組み立てます。
// 登場人物・舞台の定義ブロックは「一貫して描くこと」を明示し、スタイル欄は
// definitions.json のスタイル定義から描画します。
func BuildStoryboard(in StoryboardInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a %d-panel comic book.\n\n", len(in.PanelInstructions))
	fmt.Fprintf(&b, "Scene ID: %s\n", in.SceneID)
	fmt.Fprintf(&b, "Scene title: %s\n\n", in.SceneTitle)

	if len(in.Characters) > 0 {
		b.WriteString("Character Definitions (MUST be drawn consistently):\n")
		for _, c := range in.Characters {
			fmt.Fprintf(&b, "- %s:\n", c.Name)
			writeField(&b, "Description", c.Description)
			writeField(&b, "Appearance", c.Appearance)
		}
		b.WriteString("\n")
	}

	if len(in.Settings) > 0 {
		b.WriteString("Setting Definitions (MUST be drawn consistently):\n")
		for _, s := range in.Settings {
			fmt.Fprintf(&b, "- %s:\n", s.Name)
			writeField(&b, "Description", s.Description)
			writeField(&b, "Visual details", s.VisualDetails)
		}
		b.WriteString("\n")
	}

	if len(in.Extras) > 0 {
		b.WriteString("Extra Definitions (MUST be drawn consistently):\n")
		for _, e := range in.Extras {
			fmt.Fprintf(&b, "- %s:\n", e.Name)
			writeField(&b, "Description", e.Description)
			writeField(&b, "Appearance", e.Appearance)
		}
		b.WriteString("\n")
	}

	b.WriteString("Scene text:\n")
	b.WriteString(strings.TrimSpace(in.ChunkText))
	b.WriteString("\n\nPanel instructions:\n")
	for i, instruction := range in.PanelInstructions {
		fmt.Fprintf(&b, "%d) %s\n", i+1, instruction)
	}

	b.WriteString("\nStyle:\n")
	b.WriteString("- format: comic book\n")
	writeStyleLine(&b, "description", in.Style.Description)
	writeStyleLine(&b, "coloring", orDefault(in.Style.Coloring, "limited-palette"))
	writeStyleLine(&b, "linework", orDefault(in.Style.Inking, "inked"))
	writeStyleLine(&b, "line width", in.Style.LineWidth)
	writeStyleLine(&b, "palette", in.Style.Palette)
	writeStyleLine(&b, "shading", in.Style.Shading)
	writeStyleLine(&b, "texture", in.Style.Texture)
	writeStyleLine(&b, "mood", in.Mood)
	writeStyleLine(&b, "camera", in.Camera)

	typeface := orDefault(in.Style.Typeface, "Comic Sans (or Comic Sans-style lettering)")
	b.WriteString("\nLettering and Typography:\n")
	fmt.Fprintf(&b, "- Font: %s for all text\n", typeface)
	b.WriteString(letteringRules)

	b.WriteString("\nCRITICAL: Character and setting consistency:\n")
	b.WriteString(consistencyRules)

	b.WriteString("\nNegative prompts:\n")
	if in.NegativePrompt != "" {
		fmt.Fprintf(&b, "- %s\n", in.NegativePrompt)
	}
	b.WriteString(negativeRules)

	return strings.TrimSpace(b.String()) + "\n"
}

const letteringRules = `- Use consistent lettering style across all panels
- All dialogue and text should use the same font family and size
- Lettering should be clear, readable, and professionally rendered
- Maintain uniform text placement (speech bubbles, captions)
- Use consistent speech bubble style and shape throughout
- Ensure text is properly integrated with the art (not floating or misaligned)
- All panels must share the same typographic treatment
`

const consistencyRules = `- Draw all characters EXACTLY as described in their definitions above
- Maintain consistent appearance, clothing, and physical features for each character across all panels
- Draw all settings EXACTLY as described in their definitions above
- Maintain consistent visual details, architecture, and atmosphere for each setting
- If a character or setting appears in multiple panels, they must look identical
`

const negativeRules = `- inconsistent fonts, mismatched lettering, varying text styles
- inconsistent character appearance, changing facial features, different clothing
- inconsistent setting details, changing architecture, varying visual style
`

// BuildEntityReference は初出エンティティの正準参照画像用プロンプトです。
// 場面の文脈を与えず、中立なポーズで単体を描かせます。
func BuildEntityReference(kind, name, description, appearance string, style domain.Style) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a single full-body reference image of one %s.\n\n", kind)
	fmt.Fprintf(&b, "Name: %s\n", name)
	writeField(&b, "Description", description)
	writeField(&b, "Appearance", appearance)

	b.WriteString("\nRequirements:\n")
	b.WriteString("- Neutral standing pose, facing the viewer\n")
	b.WriteString("- Plain, uncluttered background\n")
	b.WriteString("- No scene context, no other characters, no text or lettering\n")
	b.WriteString("- This image will be reused as the visual reference for every later appearance\n")

	b.WriteString("\nStyle:\n")
	b.WriteString("- format: comic book character sheet\n")
	writeStyleLine(&b, "description", style.Description)
	writeStyleLine(&b, "coloring", orDefault(style.Coloring, "limited-palette"))
	writeStyleLine(&b, "linework", orDefault(style.Inking, "inked"))
	writeStyleLine(&b, "palette", style.Palette)

	return strings.TrimSpace(b.String()) + "\n"
}

func writeField(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "  %s: %s\n", label, value)
	}
}

func writeStyleLine(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "- %s: %s\n", label, value)
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

package prompts

import (
	"fmt"
	"strings"
)

// BuildActsStructure は「四つの円環」の枠組みで幕構成 JSON を生成させる
// プロンプトです。cycleLines には「1. The Troy Cycle: ...」形式の行を渡します。
func BuildActsStructure(storyConcept string, cycleLines []string, scenesPerAct int) string {
	var b strings.Builder

	b.WriteString("You are a narrative structure expert working with Jorge Luis Borges' \"Los Cuatro Ciclos\" (The Four Cycles) framework.\n\n")
	fmt.Fprintf(&b, "Story Concept: %s\n\n", storyConcept)
	b.WriteString("The Four Cycles to use:\n")
	for _, line := range cycleLines {
		b.WriteString(line)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nCreate a compelling narrative structure with %d acts, each corresponding to one of the cycles above. For each act:\n", len(cycleLines))
	b.WriteString("1. Provide a distinctive, evocative title that reflects the cycle's theme and fits the story\n")
	b.WriteString("2. Write a rich description (2-3 sentences) explaining how this act embodies the cycle and advances the story\n")
	fmt.Fprintf(&b, "3. Suggest exactly %d scenes for each act, with specific, dramatic purposes that build tension and character\n\n", scenesPerAct)
	b.WriteString("Be creative and specific. Make each act title memorable and each scene purpose clear and compelling.\n\n")

	b.WriteString(`Return your response as a JSON array with this exact structure:
[
  {
    "number": 1,
    "title": "Act Title",
    "description": "Act description",
    "scenes": [
      {"number": 1, "purpose": "Scene purpose"},
      {"number": 2, "purpose": "Scene purpose"}
    ]
  }
]

Return ONLY valid JSON, no explanations or markdown formatting.`)

	return b.String()
}

// BuildDefinitions は definitions.json を生成させるプロンプトです。
func BuildDefinitions(storyConcept, charactersInfo, settingsInfo, extrasInfo, styleInfo string, eras []string) string {
	var b strings.Builder

	b.WriteString("You are a creative writing assistant helping to create detailed character, setting, extra, and style definitions for a story.\n\n")
	fmt.Fprintf(&b, "Story Concept: %s\n\n", storyConcept)
	fmt.Fprintf(&b, "Eras/Time Periods: %s\n\n", strings.Join(eras, ", "))
	fmt.Fprintf(&b, "Characters Information: %s\n\n", charactersInfo)
	fmt.Fprintf(&b, "Settings Information: %s\n\n", settingsInfo)
	fmt.Fprintf(&b, "Extras Information: %s\n\n", extrasInfo)
	fmt.Fprintf(&b, "Style Information: %s\n\n", styleInfo)

	b.WriteString(`Create a comprehensive definitions.json structure with:

1. **Characters**: For each character mentioned, provide:
   - name: Character's primary name
   - aliases: Array of alternative names
   - description: Character's role, personality, motivations (2-3 sentences)
   - appearance: EXTREMELY detailed physical description including height and build, skin tone, hair, eyes, facial features, distinctive features, clothing, and accessories, with RGB color codes
   - role: Character's function in the story
   - era: The era/time period this character belongs to

2. **Settings**: For each setting mentioned, provide:
   - name: Setting's primary name
   - aliases: Array of alternative names
   - description: Setting's atmosphere, purpose, significance (2-3 sentences)
   - visual_details: EXTREMELY detailed visual description including architecture or landscape, colors with RGB codes, lighting, textures, atmosphere, and time of day
   - era: The era/time period this setting belongs to

3. **Extras**: For each extra (non-character entity) mentioned, provide:
   - name: Extra's primary name
   - aliases: Array of alternative names
   - description: What the extra is and its role (1-2 sentences)
   - appearance: Detailed visual description including colors with RGB codes, dimensions, distinctive features

4. **Style**: Provide a comprehensive style definition:
   - description: Overall visual style description
   - typeface: Font/lettering style
   - inking: Inking technique description
   - coloring: Coloring approach
   - line_width: Line width specification
   - palette: Color palette description
   - shading: Shading technique
   - texture: Texture treatment

Return your response as a JSON object with this exact structure:
{
  "characters": {...},
  "settings": {...},
  "extras": {...},
  "style": {...}
}

Return ONLY valid JSON, no explanations or markdown formatting.`)

	return b.String()
}

// StripJSONFence はモデル応答から Markdown のコードフェンスを剥がします。
func StripJSONFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/interview"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/narrative"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
)

// NarrativeRunner は対話インタビューで物語の骨子を集め、ボルヘスの
// 「四つの物語」に沿った幕構成と definitions.json を生成する実体なのだ。
type NarrativeRunner struct {
	gen      TextGenerator
	writer   FileWriter
	prompter *interview.Prompter
	opts     config.Options
	out      io.Writer
}

// NewNarrativeRunner は NarrativeRunner を生成するのだ。
func NewNarrativeRunner(
	gen TextGenerator,
	writer FileWriter,
	prompter *interview.Prompter,
	opts config.Options,
	out io.Writer,
) *NarrativeRunner {
	return &NarrativeRunner{gen: gen, writer: writer, prompter: prompter, opts: opts, out: out}
}

// Run はインタビューから出力ファイル一式の書き出しまでを実行するのだ。
// 生成物: acts.json, definitions.json, core-premise.md, README.md と
// scenes/ boards/ の空ディレクトリなのだ。
func (r *NarrativeRunner) Run(ctx context.Context) error {
	storyDir, err := r.resolveStoryDir()
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out, "=== Story Interview ===")

	concept, err := r.askExpandable(ctx, "Describe your story concept (a few sentences)", "story concept", true)
	if err != nil {
		return err
	}

	erasInput, err := r.prompter.Ask("Enter the eras/time periods (comma-separated)", "present-day", false)
	if err != nil {
		return err
	}
	eras := splitCommaList(erasInput)

	cycles, err := r.askActStructure()
	if err != nil {
		return err
	}

	charactersInfo, err := r.askExpandable(ctx, "Describe the main characters (optional)", "character descriptions", false)
	if err != nil {
		return err
	}
	settingsInfo, err := r.askExpandable(ctx, "Describe the settings/locations (optional)", "setting descriptions", false)
	if err != nil {
		return err
	}
	extrasInfo, err := r.askExpandable(ctx, "Describe key objects, props, or vehicles (optional)", "object descriptions", false)
	if err != nil {
		return err
	}
	styleInfo, err := r.prompter.Ask("Describe the visual style (optional)", "", false)
	if err != nil {
		return err
	}

	acts := r.generateActs(ctx, concept, cycles)
	defs := r.generateDefinitions(ctx, concept, charactersInfo, settingsInfo, extrasInfo, styleInfo, eras)

	if err := r.writeOutputs(ctx, storyDir, concept, acts, defs); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "\nStory scaffold created in %s\n", storyDir)
	fmt.Fprintln(r.out, "Next: run the 'scenes' command to generate prose, then 'storyboard'.")
	return nil
}

// resolveStoryDir は出力先を決め、既存の場合は上書き確認を取るのだ。
func (r *NarrativeRunner) resolveStoryDir() (string, error) {
	name := r.opts.OutputName
	if name == "" {
		answer, err := r.prompter.Ask("Enter the name for your story folder", "", true)
		if err != nil {
			return "", err
		}
		name = answer
	}

	if _, err := os.Stat(filepath.Join(name, config.DefaultActsFile)); err == nil && !r.opts.Force {
		ok, err := r.prompter.YesNo(fmt.Sprintf("%s already has a story. Overwrite?", name), false)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("既存の物語を上書きしないため中断したのだ: %s", name)
		}
	}
	return name, nil
}

// askExpandable は質問への回答を取り、希望があれば生成AIで膨らませるのだ。
// 展開に失敗しても元の回答のまま続行するのだ。
func (r *NarrativeRunner) askExpandable(ctx context.Context, question, what string, required bool) (string, error) {
	answer, err := r.prompter.Ask(question, "", required)
	if err != nil {
		return "", err
	}
	if answer == "" || r.opts.DryRun {
		return answer, nil
	}

	expand, err := r.prompter.YesNo(fmt.Sprintf("Expand the %s with AI?", what), false)
	if err != nil {
		return "", err
	}
	if !expand {
		return answer, nil
	}

	expanded, err := r.gen.GenerateText(ctx, prompts.BuildExpansion(answer, what))
	if err != nil {
		slog.Warn("展開に失敗したので元の回答を使うのだ", "what", what, "error", err)
		return answer, nil
	}
	fmt.Fprintf(r.out, "\nExpanded %s:\n%s\n", what, expanded)
	return expanded, nil
}

func (r *NarrativeRunner) askActStructure() ([]int, error) {
	choice, err := r.prompter.Choice("Choose the act structure", []string{
		"3 acts (Troy -> The Search -> The Return)",
		"5 acts (Troy -> The Search -> The Sacrifice of a God -> The Return -> Troy)",
	})
	if err != nil {
		return nil, err
	}
	actCount := 3
	if choice == 1 {
		actCount = 5
	}
	return narrative.CyclesForActs(actCount)
}

// generateActs は幕構成JSONを生成・検証するのだ。生成や解釈に失敗した場合は
// サイクル表から導いたフォールバック構成で続行するのだ。
func (r *NarrativeRunner) generateActs(ctx context.Context, concept string, cycles []int) *domain.ActsFile {
	scenesPerAct := narrative.ScenesPerAct(len(cycles))
	fallback := &domain.ActsFile{Acts: narrative.FallbackActs(cycles)}
	if r.opts.DryRun {
		fmt.Fprintf(r.out, "--- acts prompt ---\n%s\n", prompts.BuildActsStructure(concept, narrative.CycleLines(cycles), scenesPerAct))
		return fallback
	}

	text, err := r.gen.GenerateText(ctx, prompts.BuildActsStructure(concept, narrative.CycleLines(cycles), scenesPerAct))
	if err != nil {
		slog.Warn("幕構成の生成に失敗したのでフォールバックを使うのだ", "error", err)
		return fallback
	}

	var acts []domain.Act
	if err := json.Unmarshal([]byte(prompts.StripJSONFence(text)), &acts); err != nil {
		slog.Warn("幕構成JSONが解釈できないのでフォールバックを使うのだ", "error", err)
		return fallback
	}
	if len(acts) != len(cycles) {
		slog.Warn("幕の数が構成と合わないのでフォールバックを使うのだ", "want", len(cycles), "got", len(acts))
		return fallback
	}
	return &domain.ActsFile{Acts: narrative.Normalize(acts, scenesPerAct)}
}

// generateDefinitions は definitions.json を生成するのだ。失敗時は空の定義で
// 続行する（後から手で育てられるため致命的ではないのだ）。
func (r *NarrativeRunner) generateDefinitions(
	ctx context.Context,
	concept, charactersInfo, settingsInfo, extrasInfo, styleInfo string,
	eras []string,
) *domain.Definitions {
	if r.opts.DryRun {
		return domain.NewDefinitions()
	}

	prompt := prompts.BuildDefinitions(concept, charactersInfo, settingsInfo, extrasInfo, styleInfo, eras)
	text, err := r.gen.GenerateText(ctx, prompt)
	if err != nil {
		slog.Warn("定義の生成に失敗したので空の定義で続行するのだ", "error", err)
		return domain.NewDefinitions()
	}

	defs := domain.NewDefinitions()
	if err := json.Unmarshal([]byte(prompts.StripJSONFence(text)), defs); err != nil {
		slog.Warn("定義JSONが解釈できないので空の定義で続行するのだ", "error", err)
		return domain.NewDefinitions()
	}
	if defs.Characters == nil {
		defs.Characters = map[string]domain.Character{}
	}
	if defs.Settings == nil {
		defs.Settings = map[string]domain.Setting{}
	}
	if defs.Extras == nil {
		defs.Extras = map[string]domain.Extra{}
	}
	return defs
}

func (r *NarrativeRunner) writeOutputs(ctx context.Context, storyDir, concept string, acts *domain.ActsFile, defs *domain.Definitions) error {
	for _, dir := range []string{storyDir, filepath.Join(storyDir, "scenes"), filepath.Join(storyDir, "boards")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("出力ディレクトリの作成に失敗したのだ: %w", err)
		}
	}

	if err := domain.SaveActs(filepath.Join(storyDir, config.DefaultActsFile), acts); err != nil {
		return err
	}
	if err := domain.SaveDefinitions(filepath.Join(storyDir, config.DefaultDefinitionsFile), defs); err != nil {
		return err
	}

	premise := strings.TrimSpace(concept) + "\n"
	if err := r.writer.Write(ctx, filepath.Join(storyDir, "core-premise.md"), strings.NewReader(premise), "text/markdown"); err != nil {
		return fmt.Errorf("core-premise.md の書き出しに失敗したのだ: %w", err)
	}

	readme := buildReadme(storyDir, concept, acts)
	if err := r.writer.Write(ctx, filepath.Join(storyDir, "README.md"), strings.NewReader(readme), "text/markdown"); err != nil {
		return fmt.Errorf("README.md の書き出しに失敗したのだ: %w", err)
	}
	return nil
}

func buildReadme(storyDir, concept string, acts *domain.ActsFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", filepath.Base(storyDir))
	fmt.Fprintf(&b, "%s\n\n## Structure\n\n", strings.TrimSpace(concept))
	for _, act := range acts.Acts {
		fmt.Fprintf(&b, "### Act %d: %s\n\n%s\n\n", act.Number, act.Title, act.Description)
		for _, sc := range act.Scenes {
			fmt.Fprintf(&b, "- Scene %d: %s\n", sc.Number, sc.Purpose)
		}
		b.WriteString("\n")
	}
	b.WriteString("## Files\n\n")
	b.WriteString("- `acts.json` — the act/scene plan consumed by the scenes command\n")
	b.WriteString("- `definitions.json` — character, setting, and object definitions\n")
	b.WriteString("- `core-premise.md` — the thematic premise injected into every scene prompt\n")
	b.WriteString("- `scenes/` — generated scene markdown\n")
	b.WriteString("- `boards/` — generated storyboard images and reference caches\n")
	return b.String()
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/detect"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
)

// 中核の前提が無いときに使う既定値なのだ。narrative コマンドが
// core-premise.md を書き出していれば、そちらが優先されるのだ。
const defaultCorePremise = "Human reality is a simulation. Jesus is a systems engineer from the originating civilization who entered as a constrained instance to deliver a corrective signal."

// SceneRunner は acts.json の各シーンを順番に散文へ展開する実体なのだ。
// 直前のシーン要約を持ち越し、目的文から検出した時代整合の定義を
// プロンプトへ注入するのだ。
type SceneRunner struct {
	gen      TextGenerator
	writer   FileWriter
	detector *detect.Detector
	limiter  *rate.Limiter
	defs     *domain.Definitions
	acts     *domain.ActsFile
	opts     config.Options
	out      io.Writer
}

// NewSceneRunner は SceneRunner を生成するのだ。
func NewSceneRunner(
	gen TextGenerator,
	writer FileWriter,
	defs *domain.Definitions,
	acts *domain.ActsFile,
	opts config.Options,
	out io.Writer,
) *SceneRunner {
	sleep := opts.SleepBetween
	if sleep <= 0 {
		sleep = config.DefaultSceneSleep
	}
	return &SceneRunner{
		gen:      gen,
		writer:   writer,
		detector: detect.New(),
		limiter:  rate.NewLimiter(rate.Every(sleep), 1),
		defs:     defs,
		acts:     acts,
		opts:     opts,
		out:      out,
	}
}

// Run は --start-scene / --end-scene の範囲のシーンを生成するのだ。
// 既存のシーンファイルは --force が無い限りスキップするのだ。
func (r *SceneRunner) Run(ctx context.Context) error {
	planned := r.plannedScenes()
	if len(planned) == 0 {
		return fmt.Errorf("%w: 指定範囲に生成対象のシーンが無いのだ", ErrNoWork)
	}

	if err := os.MkdirAll(r.opts.ScenesDir, 0o755); err != nil {
		return fmt.Errorf("scenesディレクトリの作成に失敗したのだ: %w", err)
	}

	premise := r.loadCorePremise()
	slog.Info("シーン生成を開始するのだ", "scenes", len(planned))

	var previous []string
	for idx, scene := range planned {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		scenePath := filepath.Join(r.opts.ScenesDir, domain.SceneFileName(scene.SceneNumber))

		if !r.opts.Force {
			if _, err := os.Stat(scenePath); err == nil {
				slog.Info("既存のシーンをスキップするのだ", "scene", scene.SceneNumber, "path", scenePath)
				previous = append(previous, summaryLine(scene))
				continue
			}
		}

		slog.Info("シーンを生成するのだ",
			"progress", fmt.Sprintf("%d/%d", idx+1, len(planned)),
			"scene", scene.SceneNumber, "act", scene.ActTitle, "purpose", scene.Purpose)

		prompt := r.buildPrompt(scene, previous, premise)
		if r.opts.DryRun {
			fmt.Fprintf(r.out, "--- scene %d ---\n%s\n", scene.SceneNumber, prompt)
			previous = append(previous, summaryLine(scene))
			continue
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		text, err := r.gen.GenerateText(ctx, prompt)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			slog.Error("シーンの生成に失敗したのだ。次のシーンへ進むのだ",
				"scene", scene.SceneNumber, "error", err)
			continue
		}

		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		if err := r.writer.Write(ctx, scenePath, strings.NewReader(text), "text/markdown"); err != nil {
			slog.Error("シーンファイルの保存に失敗したのだ", "path", scenePath, "error", err)
			continue
		}
		slog.Info("シーンを書き出したのだ", "path", scenePath)
		previous = append(previous, summaryLine(scene))
	}
	return nil
}

// buildPrompt は目的文から時代整合のキャラクター・舞台定義を拾って
// シーン生成プロンプトを組み立てるのだ。
func (r *SceneRunner) buildPrompt(scene domain.PlannedScene, previous []string, premise string) string {
	det := r.detector.DetectPurpose(scene.Purpose, r.defs)
	return prompts.BuildScene(prompts.SceneInput{
		StoryName:      storyName(r.opts.StoryDir),
		CorePremise:    premise,
		ActNumber:      scene.ActNumber,
		ActTitle:       scene.ActTitle,
		ActDescription: scene.ActDescription,
		SceneNumber:    scene.SceneNumber,
		ScenePurpose:   scene.Purpose,
		PreviousScenes: previous,
		Characters:     det.Characters,
		Settings:       det.Settings,
	})
}

func (r *SceneRunner) plannedScenes() []domain.PlannedScene {
	var out []domain.PlannedScene
	for _, s := range r.acts.Flatten() {
		if s.SceneNumber < r.opts.StartScene {
			continue
		}
		if r.opts.EndScene > 0 && s.SceneNumber > r.opts.EndScene {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (r *SceneRunner) loadCorePremise() string {
	data, err := os.ReadFile(filepath.Join(r.opts.StoryDir, "core-premise.md"))
	if err != nil || len(strings.TrimSpace(string(data))) == 0 {
		return defaultCorePremise
	}
	return strings.TrimSpace(string(data))
}

func summaryLine(scene domain.PlannedScene) string {
	return fmt.Sprintf("Scene %d: %s", scene.SceneNumber, scene.Purpose)
}

func storyName(storyDir string) string {
	name := filepath.Base(filepath.Clean(storyDir))
	if name == "." || name == string(filepath.Separator) {
		return "story"
	}
	return name
}

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/chunker"
	"github.com/shouni/go-storyboard-kit/pkg/detect"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/refs"
)

// ErrNoWork は処理対象が1つも見つからなかったことを表すのだ。
// cmd 層はこれを終了コード1に対応付けるのだ。
var ErrNoWork = errors.New("処理対象が見つからなかったのだ")

// StoryboardRunner はシーンをチャンクに分割し、チャンクごとに
// 検出 → 参照選択 → 画像生成 → 参照キャッシュ更新 を順次実行する実体なのだ。
type StoryboardRunner struct {
	gen      ImageGenerator
	reader   FileReader
	writer   FileWriter
	detector *detect.Detector
	library  *refs.Library
	selector *refs.Selector
	limiter  *rate.Limiter
	defs     *domain.Definitions
	opts     config.Options
	out      io.Writer // --dry-run 時のプロンプト出力先
}

// NewStoryboardRunner は StoryboardRunner を生成するのだ。
func NewStoryboardRunner(
	gen ImageGenerator,
	reader FileReader,
	writer FileWriter,
	defs *domain.Definitions,
	library *refs.Library,
	opts config.Options,
	out io.Writer,
) *StoryboardRunner {
	sleep := opts.SleepBetween
	if sleep <= 0 {
		sleep = config.DefaultStoryboardSleep
	}
	return &StoryboardRunner{
		gen:      gen,
		reader:   reader,
		writer:   writer,
		detector: detect.New(),
		library:  library,
		selector: refs.NewSelector(library, opts.MaxAttachments),
		limiter:  rate.NewLimiter(rate.Every(sleep), 1),
		defs:     defs,
		opts:     opts,
		out:      out,
	}
}

// Run は boards ディレクトリ配下の全シーンを順番に処理するのだ。
// チャンク単位の失敗はログに残して次へ進み、実行全体は止めないのだ。
func (r *StoryboardRunner) Run(ctx context.Context) error {
	scenePaths, err := listSceneFiles(r.opts.ScenesDir)
	if err != nil {
		return err
	}
	if len(scenePaths) == 0 {
		return fmt.Errorf("%w: %s にシーンファイルが無いのだ", ErrNoWork, r.opts.ScenesDir)
	}

	if err := os.MkdirAll(r.opts.BoardsDir, 0o755); err != nil {
		return fmt.Errorf("boardsディレクトリの作成に失敗したのだ: %w", err)
	}

	slog.Info("ストーリーボード生成を開始するのだ", "scenes", len(scenePaths))
	for idx, scenePath := range scenePaths {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.runScene(ctx, scenePath); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			slog.Error("シーンの処理に失敗したのだ。次のシーンへ進むのだ",
				"scene", scenePath, "progress", fmt.Sprintf("%d/%d", idx+1, len(scenePaths)), "error", err)
		}
	}
	slog.Info("全シーンの処理が完了したのだ！", "scenes", len(scenePaths))
	return nil
}

func (r *StoryboardRunner) runScene(ctx context.Context, scenePath string) error {
	sceneText, err := r.readScene(ctx, scenePath)
	if err != nil {
		return err
	}
	sceneID := domain.SceneIDFromPath(scenePath)
	sceneTitle := domain.InferSceneTitle(sceneText)

	minChunks, maxChunks := r.opts.ChunkBand()
	chunks := chunker.Split(sceneText, chunker.Options{
		Min: minChunks, Max: maxChunks, SingleChunk: r.opts.SingleChunk,
	})
	slog.Info("シーンを分割したのだ", "scene", sceneID, "title", sceneTitle, "chunks", len(chunks))

	// 舞台が検出できなかったチャンクには直前のチャンクの舞台を引き継ぐのだ。
	// ただし新しい `## ` 見出しで始まるチャンクは場面転換なので引き継がないのだ。
	var carrySettings []domain.Setting

	for i, chunk := range chunks {
		boardStem := fmt.Sprintf("%s-%d", sceneID, i+1)
		if !r.opts.Force && boardExists(r.opts.BoardsDir, boardStem) {
			slog.Info("既存のボードをスキップするのだ", "board", boardStem)
			continue
		}

		det := r.detector.Detect(chunk.Text, r.defs)
		switch {
		case len(det.Settings) > 0:
			carrySettings = det.Settings
		case strings.HasPrefix(chunk.Text, "## "):
			// 見出し付きで舞台が特定できないチャンクは未知の場所とみなすのだ。
			carrySettings = nil
		default:
			det.Settings = carrySettings
		}
		view := refs.ClassifyView(chunk.Text)

		r.bootstrapReferences(ctx, det, view)

		if err := r.renderChunk(ctx, sceneID, sceneTitle, boardStem, chunk, det, view); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			slog.Warn("チャンクの生成に失敗したのだ。次のチャンクへ進むのだ",
				"board", boardStem, "error", err)
		}
	}
	return nil
}

// renderChunk は1チャンク分の画像を生成して保存し、参照キャッシュを更新するのだ。
func (r *StoryboardRunner) renderChunk(
	ctx context.Context,
	sceneID, sceneTitle, boardStem string,
	chunk domain.StoryboardChunk,
	det detect.Result,
	view refs.View,
) error {
	picked := r.selector.Select(det.CharacterNames(), det.ExtraNames(), det.SettingNames(), view)
	attachments := r.loadAttachments(picked)

	prompt := prompts.BuildStoryboard(prompts.StoryboardInput{
		SceneID:           boardStem,
		SceneTitle:        fmt.Sprintf("%s - %s", sceneTitle, chunk.Title),
		ChunkText:         chunk.Text,
		PanelInstructions: prompts.DerivePanelInstructions(chunk.Text, r.opts.PanelCount),
		Mood:              r.opts.Mood,
		Camera:            r.opts.Camera,
		NegativePrompt:    r.opts.NegativePrompt,
		Characters:        det.Characters,
		Settings:          det.Settings,
		Extras:            det.Extras,
		Style:             r.defs.Style,
	})

	if r.opts.DryRun {
		fmt.Fprintf(r.out, "--- %s (references: %d) ---\n%s\n", boardStem, len(attachments), prompt)
		return nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	images, err := r.gen.GenerateImage(ctx, prompt, attachments)
	if err != nil {
		return fmt.Errorf("画像生成に失敗したのだ: %w", err)
	}
	if len(images) == 0 {
		return fmt.Errorf("画像が1枚も返ってこなかったのだ (%s)", boardStem)
	}

	boardPath := ""
	for imgIdx, img := range images {
		stem := boardStem
		if len(images) > 1 {
			stem = fmt.Sprintf("%s-%d", boardStem, imgIdx+1)
		}
		path := filepath.Join(r.opts.BoardsDir, stem+"."+extForMIME(img.MIME))
		if err := r.writer.Write(ctx, path, bytes.NewReader(img.Data), img.MIME); err != nil {
			return fmt.Errorf("ボード画像の保存に失敗したのだ (%s): %w", path, err)
		}
		slog.Info("ボード画像を書き出したのだ", "path", path, "bytes", len(img.Data))
		if boardPath == "" {
			boardPath = path
		}
	}

	// 成功したチャンクに居た全エンティティへ新しいボードを記録して即フラッシュなのだ。
	if err := r.selector.Record(det.CharacterNames(), det.ExtraNames(), det.SettingNames(), view, boardPath); err != nil {
		slog.Warn("参照キャッシュの保存に失敗したのだ", "error", err)
	}
	return nil
}

// bootstrapReferences は参照マップにキーがまだ無いエンティティへ、場面の
// 文脈を持たない正準参照画像を1回だけ生成するのだ。失敗しても処理は続くのだ。
func (r *StoryboardRunner) bootstrapReferences(ctx context.Context, det detect.Result, view refs.View) {
	for _, c := range det.Characters {
		if r.library.HasCharacter(c.Name) {
			continue
		}
		prompt := prompts.BuildEntityReference("character", c.Name, c.Description, c.Appearance, r.defs.Style)
		r.generateCanonical(ctx, prompt, refs.CanonicalCharacterStem(c.Name), func(path string) {
			r.library.InsertCharacter(c.Name, path)
		})
	}
	for _, e := range det.Extras {
		if r.library.HasExtra(e.Name) {
			continue
		}
		prompt := prompts.BuildEntityReference("object", e.Name, e.Description, e.Appearance, r.defs.Style)
		r.generateCanonical(ctx, prompt, refs.CanonicalExtraStem(e.Name), func(path string) {
			r.library.InsertExtra(e.Name, path)
		})
	}
	for _, s := range det.Settings {
		if r.library.HasSetting(s.Name) {
			continue
		}
		prompt := prompts.BuildEntityReference("location", s.Name, s.Description, s.VisualDetails, r.defs.Style)
		r.generateCanonical(ctx, prompt, refs.CanonicalSettingStem(s.Name, view), func(path string) {
			r.library.InsertSetting(s.Name, view, path)
		})
	}
}

func (r *StoryboardRunner) generateCanonical(ctx context.Context, prompt, stem string, register func(path string)) {
	if r.opts.DryRun {
		fmt.Fprintf(r.out, "--- reference %s ---\n%s\n", stem, prompt)
		return
	}

	var attachments []gemini.Attachment
	if style := r.library.StyleReference(); style != "" {
		if att, err := gemini.LoadAttachment(style); err == nil {
			attachments = append(attachments, att)
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return
	}
	images, err := r.gen.GenerateImage(ctx, prompt, attachments)
	if err != nil {
		slog.Warn("正準参照画像の生成に失敗したのだ。参照なしで続けるのだ", "stem", stem, "error", err)
		return
	}
	if len(images) == 0 {
		slog.Warn("正準参照画像が返ってこなかったのだ。参照なしで続けるのだ", "stem", stem)
		return
	}

	path := filepath.Join(r.opts.BoardsDir, stem+"."+extForMIME(images[0].MIME))
	if err := r.writer.Write(ctx, path, bytes.NewReader(images[0].Data), images[0].MIME); err != nil {
		slog.Warn("正準参照画像の保存に失敗したのだ", "path", path, "error", err)
		return
	}
	register(path)
	if err := r.library.Save(); err != nil {
		slog.Warn("参照キャッシュの保存に失敗したのだ", "error", err)
	}
	slog.Info("正準参照画像を登録したのだ", "path", path)
}

func (r *StoryboardRunner) readScene(ctx context.Context, path string) (string, error) {
	rc, err := r.reader.Open(ctx, path)
	if err != nil {
		return "", fmt.Errorf("シーンファイルの読み込みに失敗したのだ (%s): %w", path, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("シーンファイルの読み取りに失敗したのだ (%s): %w", path, err)
	}
	return string(data), nil
}

func (r *StoryboardRunner) loadAttachments(paths []string) []gemini.Attachment {
	attachments := make([]gemini.Attachment, 0, len(paths))
	for _, p := range paths {
		att, err := gemini.LoadAttachment(p)
		if err != nil {
			slog.Warn("参照画像が読み込めないので添付を見送るのだ", "path", p, "error", err)
			continue
		}
		attachments = append(attachments, att)
	}
	return attachments
}

func listSceneFiles(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "scene-*.md"))
	if err != nil {
		return nil, fmt.Errorf("シーンファイルの列挙に失敗したのだ: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func boardExists(dir, stem string) bool {
	for _, ext := range []string{".png", ".jpg"} {
		if _, err := os.Stat(filepath.Join(dir, stem+ext)); err == nil {
			return true
		}
		// 複数画像が返ったときの "-1" つきの名前も既存とみなすのだ。
		if _, err := os.Stat(filepath.Join(dir, stem+"-1"+ext)); err == nil {
			return true
		}
	}
	return false
}

func extForMIME(mime string) string {
	if mime == "image/jpeg" {
		return "jpg"
	}
	return "png"
}

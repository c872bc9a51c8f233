package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/interview"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/refs"
)

// TagRunner は既存のボード画像へキャラクターの登場情報を後付けし、
// character_references.json を育てる実体なのだ。
type TagRunner struct {
	library  *refs.Library
	defs     *domain.Definitions
	prompter *interview.Prompter
	opts     config.Options
	out      io.Writer
}

// NewTagRunner は TagRunner を生成するのだ。
func NewTagRunner(
	library *refs.Library,
	defs *domain.Definitions,
	prompter *interview.Prompter,
	opts config.Options,
	out io.Writer,
) *TagRunner {
	return &TagRunner{library: library, defs: defs, prompter: prompter, opts: opts, out: out}
}

// Run はモードに応じてタグ付けを行い、最後にキャッシュを保存するのだ。
// --image 指定で1枚だけ、--interactive で対話、どちらも無ければシーン
// ファイルからの自動タグ付けなのだ。
func (r *TagRunner) Run(ctx context.Context) error {
	var err error
	switch {
	case r.opts.TagImage != "":
		err = r.tagSingle()
	case r.opts.TagInteractive:
		err = r.tagInteractive()
	default:
		err = r.tagAuto()
	}
	if err != nil {
		return err
	}

	if err := r.library.Save(); err != nil {
		return fmt.Errorf("参照キャッシュの保存に失敗したのだ: %w", err)
	}

	// サマリー表示なのだ。
	names := make([]string, 0, len(r.library.Characters))
	for name := range r.library.Characters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(r.out, "  %s: %d reference(s)\n", name, len(r.library.Characters[name]))
	}
	return nil
}

// tagAuto はシーンファイルの本文からシーンごとの登場キャラクターを推定し、
// シーンIDが一致するボード画像へまとめてタグ付けするのだ。
func (r *TagRunner) tagAuto() error {
	scenePaths, err := listSceneFiles(r.opts.ScenesDir)
	if err != nil {
		return err
	}
	if len(scenePaths) == 0 {
		return fmt.Errorf("%w: %s にシーンファイルが無いのだ", ErrNoWork, r.opts.ScenesDir)
	}

	sceneCharacters := map[string][]string{}
	for _, scenePath := range scenePaths {
		data, err := os.ReadFile(scenePath)
		if err != nil {
			slog.Warn("シーンファイルが読めないのでスキップするのだ", "path", scenePath, "error", err)
			continue
		}
		if chars := r.charactersMentioned(string(data)); len(chars) > 0 {
			sceneCharacters[domain.SceneIDFromPath(scenePath)] = chars
		}
	}

	images, err := listBoardImages(r.opts.BoardsDir)
	if err != nil {
		return err
	}

	tagged := 0
	for _, image := range images {
		sceneID := sceneIDFromBoard(image)
		chars, ok := sceneCharacters[sceneID]
		if !ok {
			continue
		}
		for _, name := range chars {
			r.library.InsertCharacter(name, image)
		}
		tagged++
		slog.Info("ボードをタグ付けしたのだ", "board", filepath.Base(image), "characters", chars)
	}
	fmt.Fprintf(r.out, "Auto-tagged %d image(s)\n", tagged)
	return nil
}

func (r *TagRunner) tagSingle() error {
	image := r.opts.TagImage
	if !filepath.IsAbs(image) {
		image = filepath.Join(r.opts.BoardsDir, image)
	}
	if _, err := os.Stat(image); err != nil {
		return fmt.Errorf("%w: 画像が見つからないのだ (%s)", ErrNoWork, image)
	}

	chars := r.opts.TagCharacters
	if len(chars) == 0 {
		fmt.Fprintf(r.out, "Available characters: %s\n", strings.Join(r.defs.SortedCharacterKeys(), ", "))
		answer, err := r.prompter.Ask("Enter character names (space-separated)", "", true)
		if err != nil {
			return err
		}
		chars = strings.Fields(answer)
	}
	for _, name := range chars {
		r.library.InsertCharacter(name, image)
	}
	fmt.Fprintf(r.out, "Tagged %s with: %s\n", filepath.Base(image), strings.Join(chars, ", "))
	return nil
}

func (r *TagRunner) tagInteractive() error {
	images, err := listBoardImages(r.opts.BoardsDir)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("%w: %s に画像が無いのだ", ErrNoWork, r.opts.BoardsDir)
	}

	fmt.Fprintf(r.out, "Found %d image(s) to tag\n", len(images))
	fmt.Fprintf(r.out, "Available characters: %s\n", strings.Join(r.defs.SortedCharacterKeys(), ", "))
	fmt.Fprintln(r.out, "(Press Enter to skip an image, 'q' to quit)")

	for _, image := range images {
		question := fmt.Sprintf("Tag %s? (characters or Enter to skip, 'q' to quit)", filepath.Base(image))
		answer, err := r.prompter.Ask(question, "", false)
		if err != nil {
			return err
		}
		if strings.EqualFold(answer, "q") {
			break
		}
		if answer == "" {
			continue
		}
		chars := strings.Fields(answer)
		for _, name := range chars {
			r.library.InsertCharacter(name, image)
		}
		fmt.Fprintf(r.out, "  Tagged with: %s\n", strings.Join(chars, ", "))
	}
	return nil
}

// charactersMentioned は本文にキー・名前・別名のいずれかが現れる
// キャラクターの正式名を返すのだ。自動タグ付けは緩い部分一致で十分なのだ。
func (r *TagRunner) charactersMentioned(sceneText string) []string {
	lower := strings.ToLower(sceneText)
	var out []string
	for _, key := range r.defs.SortedCharacterKeys() {
		char := r.defs.Characters[key]
		for _, name := range char.MatchNames(key) {
			if strings.Contains(lower, strings.ToLower(name)) {
				out = append(out, char.Name)
				break
			}
		}
	}
	return out
}

func listBoardImages(dir string) ([]string, error) {
	var images []string
	for _, pattern := range []string{"*.png", "*.jpg"} {
		matched, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("ボード画像の列挙に失敗したのだ: %w", err)
		}
		images = append(images, matched...)
	}
	sort.Strings(images)

	// 正準参照画像（ref-*）はタグ付けの対象外なのだ。
	out := images[:0]
	for _, image := range images {
		if strings.HasPrefix(filepath.Base(image), "ref-") {
			continue
		}
		out = append(out, image)
	}
	return out, nil
}

// sceneIDFromBoard はボードファイル名から末尾のチャンク番号を落として
// シーンIDを取り出すのだ（例: scene-0001-2.png → scene-0001）。
func sceneIDFromBoard(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.LastIndex(stem, "-"); i > 0 {
		return stem[:i]
	}
	return stem
}

package builder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/gemini"
	"github.com/shouni/go-storyboard-kit/internal/interview"
	"github.com/shouni/go-storyboard-kit/internal/runner"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/refs"
)

// BuildNarrativeRunner はインタビューから物語の骨子を作る Runner を構築します。
func BuildNarrativeRunner(appCtx *AppContext) *runner.NarrativeRunner {
	prompter := interview.New(os.Stdin, os.Stdout)
	return runner.NewNarrativeRunner(appCtx.aiClient, appCtx.Writer, prompter, appCtx.Options, os.Stdout)
}

// BuildSceneRunner はシーン散文生成を担当する Runner を構築します。
// acts.json はシーン生成の必須入力です。
func BuildSceneRunner(appCtx *AppContext) (*runner.SceneRunner, error) {
	defs, err := loadDefinitions(appCtx.Options)
	if err != nil {
		return nil, err
	}
	acts, err := domain.LoadActs(filepath.Join(appCtx.Options.StoryDir, config.DefaultActsFile))
	if err != nil {
		return nil, err
	}
	return runner.NewSceneRunner(appCtx.aiClient, appCtx.Writer, defs, acts, appCtx.Options, os.Stdout), nil
}

// BuildStoryboardRunner はストーリーボード画像生成を担当する Runner を構築します。
func BuildStoryboardRunner(appCtx *AppContext) (*runner.StoryboardRunner, error) {
	defs, err := loadDefinitions(appCtx.Options)
	if err != nil {
		return nil, err
	}
	library := refs.Load(appCtx.Options.BoardsDir)
	return runner.NewStoryboardRunner(
		appCtx.aiClient,
		appCtx.Reader,
		appCtx.Writer,
		defs,
		library,
		appCtx.Options,
		os.Stdout,
	), nil
}

// BuildTagRunner は既存ボードへのタグ付けを担当する Runner を構築します。
// 生成AIを使わないため、AIクライアントは注入しません。
func BuildTagRunner(appCtx *AppContext) (*runner.TagRunner, error) {
	defs, err := loadDefinitions(appCtx.Options)
	if err != nil {
		return nil, err
	}
	library := refs.Load(appCtx.Options.BoardsDir)
	prompter := interview.New(os.Stdin, os.Stdout)
	return runner.NewTagRunner(library, defs, prompter, appCtx.Options, os.Stdout), nil
}

// InitializeAIClient は Gemini REST クライアントを初期化します。
func InitializeAIClient(cfg *config.Config, httpClient gemini.Doer) *gemini.Client {
	return gemini.New(httpClient, gemini.Params{
		APIKey:     cfg.GeminiAPIKey,
		TextModel:  cfg.GeminiModel,
		ImageModel: cfg.GeminiImageModel,
		MaxRetries: cfg.Options.MaxRetries,
		RetryBase:  cfg.Options.RetryBase,
	})
}

func loadDefinitions(opts config.Options) (*domain.Definitions, error) {
	path := filepath.Join(opts.StoryDir, config.DefaultDefinitionsFile)
	defs, err := domain.LoadDefinitions(path)
	if err != nil {
		return nil, fmt.Errorf("定義の読み込みに失敗したのだ: %w", err)
	}
	return defs, nil
}

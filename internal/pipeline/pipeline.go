package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/config"

	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

// ExecuteNarrative は、対話インタビューから acts.json / definitions.json /
// core-premise.md を含むストーリーフォルダを組み立てるのだ。
func ExecuteNarrative(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	narrativeRunner := builder.BuildNarrativeRunner(appCtx)
	if err := narrativeRunner.Run(ctx); err != nil {
		return err
	}

	slog.Info("物語の骨子が完成したのだ！")
	return nil
}

// ExecuteScenes は、acts.json の各シーンを散文の Markdown に展開するのだ。
func ExecuteScenes(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	sceneRunner, err := builder.BuildSceneRunner(appCtx)
	if err != nil {
		return fmt.Errorf("SceneRunnerの構築に失敗したのだ: %w", err)
	}
	if err := sceneRunner.Run(ctx); err != nil {
		return err
	}

	slog.Info("シーン生成が完了したのだ！")
	return nil
}

// ExecuteStoryboards は、生成済みシーンをチャンクに分割してストーリーボード
// 画像を生成するのだ。参照画像キャッシュもここで育つのだ。
func ExecuteStoryboards(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	storyboardRunner, err := builder.BuildStoryboardRunner(appCtx)
	if err != nil {
		return fmt.Errorf("StoryboardRunnerの構築に失敗したのだ: %w", err)
	}
	if err := storyboardRunner.Run(ctx); err != nil {
		return err
	}

	slog.Info("ストーリーボード生成が完了したのだ！")
	return nil
}

// ExecuteTag は、既存のボード画像へキャラクターの登場情報を後付けするのだ。
// 生成AIを呼ばないため、APIキーが無くても動くのだ。
func ExecuteTag(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	tagRunner, err := builder.BuildTagRunner(appCtx)
	if err != nil {
		return fmt.Errorf("TagRunnerの構築に失敗したのだ: %w", err)
	}
	if err := tagRunner.Run(ctx); err != nil {
		return err
	}

	slog.Info("タグ付けが完了したのだ！")
	return nil
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、アプリケーションコンテキストを初期化して返すのだ。
// ライフサイクル管理用の context と設定オブジェクトを受け取るのだ。
// 初期化中にエラーが発生した場合は、AppContext のポインタとエラーを返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*builder.AppContext, error) {
	httpClient := httpkit.New(config.DefaultHTTPTimeout)
	aiClient := builder.InitializeAIClient(cfg, httpClient)

	gcsFactory, err := gcsfactory.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.InputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.OutputWriter()
	if err != nil {
		return nil, err
	}

	appCtx := builder.NewAppContext(cfg, httpClient, aiClient, reader, writer)
	return &appCtx, nil
}

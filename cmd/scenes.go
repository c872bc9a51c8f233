package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// scenesCmd は、acts.json の各シーンを散文のMarkdownに展開するのだ。
var scenesCmd = &cobra.Command{
	Use:   "scenes",
	Short: "幕構成の各シーンを散文Markdownとして生成するのだ。",
	Long: `acts.json の計画に沿って scenes/scene-0001.md ... を順番に生成するのだ。
直前シーンの要約を持ち越すので、物語として連続した散文になるのだよ。
既に存在するシーンは --force が無い限りスキップするのだ。`,
	Example: "  ap-storyboard-go scenes -d my-story --start-scene 3 --end-scene 6",
	RunE:    scenesCommand,
}

func init() {
	scenesCmd.Flags().IntVar(&opts.StartScene, "start-scene", 0, "この番号以降のシーンだけを生成するのだ。")
	scenesCmd.Flags().IntVar(&opts.EndScene, "end-scene", 0, "この番号までのシーンだけを生成するのだ（0は無制限なのだ）。")
}

func scenesCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// --sleep-between が指定されなかったら、シーン生成向けの既定値を使うのだ。
	if !cmd.Flags().Changed("sleep-between") {
		opts.SleepBetween = config.DefaultSceneSleep
	}

	cfg := config.LoadConfig()
	cfg.OverrideAPIKey(opts.APIKey)
	cfg.GeminiModel = opts.AIModel
	opts.ResolveLayout()
	cfg.Options = opts

	slog.Info("シーン生成パイプラインを起動するのだ！",
		"story_dir", opts.StoryDir,
		"text_model", cfg.GeminiModel,
		"start", opts.StartScene,
		"end", opts.EndScene)

	if err := pipeline.ExecuteScenes(ctx, cfg); err != nil {
		return fmt.Errorf("シーン生成中にエラーが発生したのだ: %w", err)
	}
	return nil
}

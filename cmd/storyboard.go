package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// storyboardCmd は、生成済みシーンからコマ割りのボード画像を生成するのだ。
var storyboardCmd = &cobra.Command{
	Use:   "storyboard",
	Short: "シーンからストーリーボード画像を生成するのだ。",
	Long: `scenes/ 配下のシーンMarkdownをセクション単位のチャンクに分割し、チャンク
ごとにコミック形式のボード画像を生成するのだ。検出したキャラクター・舞台の
参照画像を添付して、巻をまたいだ見た目の一貫性を保つのだよ。`,
	Example: "  ap-storyboard-go storyboard -d my-story --storyboards-per-scene 4",
	RunE:    storyboardCommand,
}

func init() {
	storyboardCmd.Flags().IntVar(&opts.MinStoryboards, "min-storyboards", config.DefaultMinStoryboards, "1シーンあたりのチャンク数の下限なのだ。")
	storyboardCmd.Flags().IntVar(&opts.MaxStoryboards, "max-storyboards", config.DefaultMaxStoryboards, "1シーンあたりのチャンク数の上限なのだ。")
	storyboardCmd.Flags().IntVar(&opts.StoryboardsPerScene, "storyboards-per-scene", 0, "チャンク数をこの値に固定するのだ（0で帯域指定に従うのだ）。")
	storyboardCmd.Flags().BoolVar(&opts.SingleChunk, "single-chunk", false, "シーン全体を1枚のボードにまとめるのだ。")
	storyboardCmd.Flags().IntVar(&opts.PanelCount, "panel-count", 0, "1ボードのコマ数を固定するのだ（0で本文から導出するのだ）。")
	storyboardCmd.Flags().IntVar(&opts.MaxAttachments, "max-attachments", config.DefaultMaxAttachments, "1リクエストに添付する参照画像の上限なのだ。")
	storyboardCmd.Flags().StringVar(&opts.Mood, "mood", config.DefaultMood, "画の雰囲気指定なのだ。")
	storyboardCmd.Flags().StringVar(&opts.Camera, "camera", config.DefaultCamera, "カメラワークの指定なのだ。")
	storyboardCmd.Flags().StringVar(&opts.NegativePrompt, "negative-prompt", config.DefaultNegativePrompt, "避けたい要素の指定なのだ。")
}

func storyboardCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 画像生成は重いので、既定の待機はシーン生成より長めなのだ。
	if !cmd.Flags().Changed("sleep-between") {
		opts.SleepBetween = config.DefaultStoryboardSleep
	}

	cfg := config.LoadConfig()
	cfg.OverrideAPIKey(opts.APIKey)
	cfg.GeminiImageModel = opts.ImageModel
	opts.ResolveLayout()
	cfg.Options = opts

	slog.Info("ストーリーボード生成パイプラインを起動するのだ！",
		"story_dir", opts.StoryDir,
		"image_model", cfg.GeminiImageModel,
		"min", opts.MinStoryboards,
		"max", opts.MaxStoryboards)

	if err := pipeline.ExecuteStoryboards(ctx, cfg); err != nil {
		return fmt.Errorf("ストーリーボード生成中にエラーが発生したのだ: %w", err)
	}
	return nil
}

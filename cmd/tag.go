package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// tagCmd は、既存のボード画像へキャラクターの登場情報を後付けするのだ。
var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "ボード画像にキャラクターをタグ付けして参照キャッシュを育てるのだ。",
	Long: `character_references.json に「この画像にこのキャラが写っている」という情報を
追記するのだ。既定ではシーン本文から自動で推定し、--image で1枚だけ、
--interactive で全画像を対話的にタグ付けできるのだ。APIキーは不要なのだよ。`,
	Example: `  ap-storyboard-go tag -d my-story
  ap-storyboard-go tag -d my-story --image scene-0001-2.png --characters joel,ellie
  ap-storyboard-go tag -d my-story --interactive`,
	RunE: tagCommand,
}

func init() {
	tagCmd.Flags().StringVar(&opts.TagImage, "image", "", "この1枚だけにタグ付けするのだ（boards ディレクトリからの相対パスでもいいのだ）。")
	tagCmd.Flags().StringSliceVar(&opts.TagCharacters, "characters", nil, "--image と組で使うキャラクター名のリストなのだ。")
	tagCmd.Flags().BoolVar(&opts.TagInteractive, "interactive", false, "全ボード画像を1枚ずつ確認しながらタグ付けするのだ。")
}

func tagCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(opts.TagCharacters) > 0 && opts.TagImage == "" {
		return fmt.Errorf("--characters は --image と一緒に指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	opts.ResolveLayout()
	cfg.Options = opts

	slog.Info("タグ付けモードを起動するのだ！", "story_dir", opts.StoryDir)

	if err := pipeline.ExecuteTag(ctx, cfg); err != nil {
		return fmt.Errorf("タグ付け中にエラーが発生したのだ: %w", err)
	}
	return nil
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// narrativeCmd は、対話インタビューから物語の骨子一式を生成するのだ。
var narrativeCmd = &cobra.Command{
	Use:   "narrative",
	Short: "インタビューに答えて物語の骨子を作るのだ。",
	Long: `ボルヘスの「四つの物語」（Los Cuatro Ciclos）の枠組みで、ストーリーの
コンセプトから幕構成（acts.json）とキャラクター・舞台定義（definitions.json）を
生成するのだ。コアの前提（core-premise.md）と README もここで書き出すのだよ。`,
	Example: "  ap-storyboard-go narrative -o my-story",
	RunE:    narrativeCommand,
}

func init() {
	narrativeCmd.Flags().StringVarP(&opts.OutputName, "output", "o", "", "作成するストーリーフォルダ名なのだ（省略時は対話で尋ねるのだ）。")
}

func narrativeCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.OverrideAPIKey(opts.APIKey)
	cfg.GeminiModel = opts.AIModel
	opts.ResolveLayout()
	cfg.Options = opts

	slog.Info("物語インタビューを開始するのだ！", "text_model", cfg.GeminiModel)

	if err := pipeline.ExecuteNarrative(ctx, cfg); err != nil {
		return fmt.Errorf("物語の骨子作りに失敗したのだ: %w", err)
	}
	return nil
}

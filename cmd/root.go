package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-storyboard-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// opts は全サブコマンドで共有する実行時オプションなのだ。
// addAppFlags でフラグと紐付けられるのだよ。
var opts config.Options

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ストーリー入出力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.StoryDir, "story-dir", "d", ".", "acts.json や scenes/ boards/ を置くストーリーディレクトリなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ScenesDir, "scenes-dir", "", "シーンMarkdownの置き場（省略時は <story-dir>/scenes なのだ）。")
	rootCmd.PersistentFlags().StringVar(&opts.BoardsDir, "boards-dir", "", "ボード画像と参照キャッシュの置き場（省略時は <story-dir>/boards なのだ）。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.APIKey, "api-key", "", "Gemini APIキーなのだ（省略時は環境変数 GEMINI_API_KEY を使うのだ）。")
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", config.DefaultModel, "テキスト生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultImageModel, "画像生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().IntVar(&opts.MaxRetries, "max-retries", config.DefaultMaxRetries, "429応答に対する再試行回数の上限なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.RetryBase, "retry-base", config.DefaultRetryBase, "再試行バックオフの基準待機時間なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.SleepBetween, "sleep-between", 0, "生成呼び出しの間に挟む待機時間なのだ（省略時はコマンドごとの既定値）。")

	// --- 実行制御 ---
	rootCmd.PersistentFlags().BoolVar(&opts.Force, "force", false, "既存の成果物があっても作り直すのだ。")
	rootCmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "プロンプトを表示するだけでAPIは呼ばないのだ。")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "詳細なログを出すのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// .env があれば読み込むのだ。既にある環境変数は上書きしないのだよ。
	config.LoadDotEnv(".env")

	if opts.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// tag はAPIを呼ばず、dry-run も呼ぶふりだけなので、キーのチェックを免除するのだ。
	if cmd.Name() == "tag" || opts.DryRun {
		return nil
	}

	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if opts.APIKey == "" && os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "エラー: --api-key も環境変数 GEMINI_API_KEY も設定されていません。Gemini APIの利用には必須なのだ")
		os.Exit(2)
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"ap-storyboard-go",
		addAppFlags,
		preRunAppE,
		narrativeCmd,
		scenesCmd,
		storyboardCmd,
		tagCmd,
	)
}

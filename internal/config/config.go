package config

import (
	"path/filepath"
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultModel       = "gemini-3-flash-preview"
	DefaultImageModel  = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout = 120 * time.Second

	DefaultMaxRetries = 5
	DefaultRetryBase  = 5 * time.Second

	// 生成呼び出しの間に挟む待機時間なのだ。画像生成は重いので長めにするのだ。
	DefaultSceneSleep      = 5 * time.Second
	DefaultStoryboardSleep = 10 * time.Second

	DefaultMinStoryboards = 3
	DefaultMaxStoryboards = 5
	DefaultMaxAttachments = 8

	DefaultMood           = "cinematic"
	DefaultCamera         = "varied angles"
	DefaultNegativePrompt = "blurry, low quality, distorted anatomy, watermark"

	// ストーリーディレクトリ内の標準レイアウトなのだ。
	DefaultDefinitionsFile = "definitions.json"
	DefaultActsFile        = "acts.json"
	DefaultScenesDir       = "scenes"
	DefaultBoardsDir       = "boards"
)

// Config はアプリケーション全体の環境設定（APIキーやモデル名）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string

	Options Options
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
	}
}

// OverrideAPIKey はフラグで明示されたAPIキーを環境由来の値より優先するのだ。
func (c *Config) OverrideAPIKey(key string) {
	if key != "" {
		c.GeminiAPIKey = key
	}
}

// Options は CLI フラグから渡される実行時のパラメータなのだ。
type Options struct {
	// ストーリー入出力関連
	StoryDir   string // --story-dir: acts.json / definitions.json / scenes / boards を置くルート
	ScenesDir  string // --scenes-dir
	BoardsDir  string // --boards-dir
	OutputName string // --output: narrative が作るストーリーフォルダ名

	// AI挙動設定
	APIKey     string // --api-key: 指定時は環境変数 GEMINI_API_KEY より優先なのだ
	AIModel    string // --model: テキスト生成用のGeminiモデル
	ImageModel string // --image-model: 画像生成用のGeminiモデル

	// 再試行・流量制御
	MaxRetries   int           // --max-retries
	RetryBase    time.Duration // --retry-base
	SleepBetween time.Duration // --sleep-between

	// シーン生成関連
	StartScene int  // --start-scene
	EndScene   int  // --end-scene
	Force      bool // --force: 既存の成果物を上書きするのだ

	// ストーリーボード関連
	MinStoryboards      int    // --min-storyboards
	MaxStoryboards      int    // --max-storyboards
	StoryboardsPerScene int    // --storyboards-per-scene: 指定すると Min=Max で固定なのだ
	SingleChunk         bool   // --single-chunk
	PanelCount          int    // --panel-count
	MaxAttachments      int    // --max-attachments
	Mood                string // --mood
	Camera              string // --camera
	NegativePrompt      string // --negative-prompt

	// tag コマンド関連
	TagImage       string   // --image: 1枚だけタグ付けするモード
	TagCharacters  []string // --characters: --image と組で使うのだ
	TagInteractive bool     // --interactive

	// 実行制御
	DryRun  bool // --dry-run: プロンプトを表示するだけで呼び出さないのだ
	Verbose bool // --verbose
}

// ResolveLayout は未指定の scenes / boards ディレクトリをストーリーディレクトリ
// 配下の標準レイアウトに解決するのだ。
func (o *Options) ResolveLayout() {
	if o.StoryDir == "" {
		o.StoryDir = "."
	}
	if o.ScenesDir == "" {
		o.ScenesDir = filepath.Join(o.StoryDir, DefaultScenesDir)
	}
	if o.BoardsDir == "" {
		o.BoardsDir = filepath.Join(o.StoryDir, DefaultBoardsDir)
	}
}

// ChunkBand はチャンク数の下限・上限を解決するのだ。--storyboards-per-scene が
// 指定されていれば Min=Max に固定するのだ。
func (o Options) ChunkBand() (minChunks, maxChunks int) {
	if o.StoryboardsPerScene > 0 {
		return o.StoryboardsPerScene, o.StoryboardsPerScene
	}
	minChunks, maxChunks = o.MinStoryboards, o.MaxStoryboards
	if minChunks <= 0 {
		minChunks = DefaultMinStoryboards
	}
	if maxChunks <= 0 {
		maxChunks = DefaultMaxStoryboards
	}
	if maxChunks < minChunks {
		maxChunks = minChunks
	}
	return minChunks, maxChunks
}

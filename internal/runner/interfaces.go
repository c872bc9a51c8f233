package runner

import (
	"context"
	"io"

	"github.com/shouni/go-storyboard-kit/internal/gemini"
)

// TextGenerator はテキスト生成サービスの抽象なのだ。
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator は参照画像つきの画像生成サービスの抽象なのだ。
// 成功時でも返るスライスが空のことはあり得るので、呼び出し側は長さを確認するのだ。
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, refs []gemini.Attachment) ([]gemini.Image, error)
}

// FileReader は入力成果物の読み込み面なのだ。remoteio.InputReader が満たす。
type FileReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// FileWriter は出力成果物の書き込み面なのだ。remoteio.OutputWriter が満たす。
type FileWriter interface {
	Write(ctx context.Context, path string, r io.Reader, mime string) error
}

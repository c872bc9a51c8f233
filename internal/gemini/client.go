// Package gemini は Gemini (generativelanguage v1beta) REST API の薄い
// クライアントです。テキスト生成と、参照画像をインライン添付する画像生成の
// 2操作を提供し、HTTP 429 のみを指数バックオフで再試行します。
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// Doer は HTTP リクエストを送信できる最小のインターフェースです。
// httpkit.ClientInterface と *http.Client のどちらも満たします。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// 既定値です。タイムアウトは呼び出し側（httpkit.New）が120秒で設定します。
const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultMaxRetries = 5
	DefaultRetryBase  = 5 * time.Second

	defaultAspectRatio = "16:9"
	defaultImageSize   = "2K"

	textCacheTTL   = 30 * time.Minute
	textCacheSweep = 1 * time.Hour
)

// Params はクライアントの構成です。ゼロ値のフィールドには既定値が入ります。
type Params struct {
	APIKey     string
	TextModel  string
	ImageModel string
	MaxRetries int
	RetryBase  time.Duration
	BaseURL    string
}

// Client は Gemini REST API クライアントです。同一プロンプトのテキスト生成は
// TTL キャッシュから返します。
type Client struct {
	httpClient Doer
	params     Params
	textCache  *cache.Cache
}

// New はクライアントを生成します。
func New(httpClient Doer, p Params) *Client {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.RetryBase <= 0 {
		p.RetryBase = DefaultRetryBase
	}
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		params:     p,
		textCache:  cache.New(textCacheTTL, textCacheSweep),
	}
}

// Attachment は画像生成リクエストにインライン添付する参照画像です。
type Attachment struct {
	Path string
	MIME string
	Data []byte
}

// LoadAttachment は参照画像ファイルを読み込み、拡張子から MIME を推定します。
func LoadAttachment(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("参照画像の読み込みに失敗しました: %w", err)
	}
	return Attachment{Path: path, MIME: mimeForExt(filepath.Ext(path)), Data: data}, nil
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// Image は生成された画像1枚です。
type Image struct {
	MIME string
	Data []byte
}

// --- generativelanguage v1beta のワイヤ形式 ---

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateText はプロンプト1つでテキストを生成します。
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if cached, ok := c.textCache.Get(prompt); ok {
		slog.Debug("テキストキャッシュにヒットしました")
		return cached.(string), nil
	}

	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	resp, err := c.generate(ctx, c.params.TextModel, req)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	text := b.String()
	if text == "" {
		return "", fmt.Errorf("応答にテキストが含まれていません")
	}
	c.textCache.Set(prompt, text, cache.DefaultExpiration)
	return text, nil
}

// GenerateImage はプロンプトと参照画像から画像を生成します。参照画像は
// base64 のインラインデータとして同一リクエストに載せます。
func (c *Client) GenerateImage(ctx context.Context, prompt string, refs []Attachment) ([]Image, error) {
	parts := make([]part, 0, len(refs)+1)
	parts = append(parts, part{Text: prompt})
	for _, ref := range refs {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: ref.MIME,
			Data:     base64.StdEncoding.EncodeToString(ref.Data),
		}})
	}

	req := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig: &imageConfig{
				AspectRatio: defaultAspectRatio,
				ImageSize:   defaultImageSize,
			},
		},
	}
	resp, err := c.generate(ctx, c.params.ImageModel, req)
	if err != nil {
		return nil, err
	}

	var images []Image
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("画像データのデコードに失敗しました: %w", err)
			}
			mime := p.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			images = append(images, Image{MIME: mime, Data: data})
		}
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("応答に画像が含まれていません")
	}
	return images, nil
}

// generate は generateContent を1回分実行します。429 は Retry-After を優先し、
// 無ければ retryBase * 2^attempt で待って再試行します。その他のエラーは
// 即座に返します。
func (c *Client) generate(ctx context.Context, model string, reqBody generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.params.BaseURL, model, c.params.APIKey)

	for attempt := 0; ; attempt++ {
		resp, retryAfter, err := c.post(ctx, url, payload)
		if err == nil {
			return resp, nil
		}
		if retryAfter < 0 || attempt >= c.params.MaxRetries {
			return nil, err
		}

		delay := retryAfter
		if delay == 0 {
			delay = c.params.RetryBase * (1 << attempt)
		}
		slog.Warn("レート制限に達しました。待機して再試行します",
			"model", model, "attempt", attempt+1, "delay", delay)
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// post は1回の POST を行います。再試行可能（429）なら retryAfter >= 0 を返し、
// それ以外の失敗では retryAfter < 0 を返します。
func (c *Client) post(ctx context.Context, url string, payload []byte) (*generateResponse, time.Duration, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, -1, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, -1, fmt.Errorf("API呼び出しに失敗しました: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, -1, fmt.Errorf("応答の読み取りに失敗しました: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if header := httpResp.Header.Get("Retry-After"); header != "" {
			if secs, err := strconv.ParseFloat(header, 64); err == nil {
				retryAfter = time.Duration(secs * float64(time.Second))
			}
		}
		return nil, retryAfter, fmt.Errorf("レート制限を超過しました (HTTP 429)")
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, -1, fmt.Errorf("APIがエラーを返しました (HTTP %d): %s",
			httpResp.StatusCode, truncate(string(body), 300))
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, -1, fmt.Errorf("応答のデコードに失敗しました: %w", err)
	}
	return &resp, -1, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

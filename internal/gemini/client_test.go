package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textResponse(text string) string {
	resp := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{
				map[string]any{"text": text},
			}}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func newTestClient(serverURL string, maxRetries int) *Client {
	return New(http.DefaultClient, Params{
		APIKey:     "test-key",
		TextModel:  "text-model",
		ImageModel: "image-model",
		MaxRetries: maxRetries,
		RetryBase:  time.Millisecond,
		BaseURL:    serverURL,
	})
}

func TestGenerateText(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1beta/models/text-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Contains(t, string(body), "hello prompt")

		io.WriteString(w, textResponse("generated text"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	got, err := client.GenerateText(context.Background(), "hello prompt")
	require.NoError(t, err)
	assert.Equal(t, "generated text", got)

	// 同一プロンプトはキャッシュから返り、HTTP 呼び出しは増えません。
	again, err := client.GenerateText(context.Background(), "hello prompt")
	require.NoError(t, err)
	assert.Equal(t, "generated text", again)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateText_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.Header().Set("Retry-After", "0.001")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, textResponse("after retries"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)
	got, err := client.GenerateText(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "after retries", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateText_RetryBudgetExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)
	_, err := client.GenerateText(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

// 429 以外のエラーは再試行せず即座に返します。
func TestGenerateText_NoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)
	_, err := client.GenerateText(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateImage(t *testing.T) {
	pngBytes := []byte{0x89, 'P', 'N', 'G'}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/image-model:generateContent", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var req generateRequest
		require.NoError(t, json.Unmarshal(body, &req))
		require.Len(t, req.Contents, 1)
		parts := req.Contents[0].Parts
		require.Len(t, parts, 2)
		assert.Equal(t, "draw it", parts[0].Text)
		require.NotNil(t, parts[1].InlineData)
		assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
		require.NotNil(t, req.GenerationConfig)
		assert.Equal(t, []string{"IMAGE"}, req.GenerationConfig.ResponseModalities)

		resp := map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{
					map[string]any{"inlineData": map[string]any{
						"mimeType": "image/png",
						"data":     base64.StdEncoding.EncodeToString(pngBytes),
					}},
				}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	refs := []Attachment{{Path: "ref-joel.png", MIME: "image/png", Data: []byte("refdata")}}
	images, err := client.GenerateImage(context.Background(), "draw it", refs)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "image/png", images[0].MIME)
	assert.Equal(t, pngBytes, images[0].Data)
}

func TestGenerateImage_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[]}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 0).GenerateImage(context.Background(), "p", nil)
	assert.Error(t, err)
}

func TestLoadAttachment_MIMESniffing(t *testing.T) {
	assert.Equal(t, "image/png", mimeForExt(".PNG"))
	assert.Equal(t, "image/jpeg", mimeForExt(".jpg"))
	assert.Equal(t, "image/webp", mimeForExt(".webp"))
	assert.Equal(t, "application/octet-stream", mimeForExt(".bin"))
}

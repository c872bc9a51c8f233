package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("IMAGE_GEMINI_MODEL", "")
	os.Unsetenv("GEMINI_MODEL")
	os.Unsetenv("IMAGE_GEMINI_MODEL")

	cfg := LoadConfig()
	assert.Equal(t, "k", cfg.GeminiAPIKey)
	assert.Equal(t, DefaultModel, cfg.GeminiModel)
	assert.Equal(t, DefaultImageModel, cfg.GeminiImageModel)
}

func TestOverrideAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg := LoadConfig()
	cfg.OverrideAPIKey("")
	assert.Equal(t, "env-key", cfg.GeminiAPIKey)

	// フラグのキーは環境変数より優先なのだ。
	cfg.OverrideAPIKey("flag-key")
	assert.Equal(t, "flag-key", cfg.GeminiAPIKey)
}

func TestChunkBand(t *testing.T) {
	var o Options
	minChunks, maxChunks := o.ChunkBand()
	assert.Equal(t, DefaultMinStoryboards, minChunks)
	assert.Equal(t, DefaultMaxStoryboards, maxChunks)

	o = Options{MinStoryboards: 3, MaxStoryboards: 5}
	minChunks, maxChunks = o.ChunkBand()
	assert.Equal(t, 3, minChunks)
	assert.Equal(t, 5, maxChunks)

	o.StoryboardsPerScene = 4
	minChunks, maxChunks = o.ChunkBand()
	assert.Equal(t, 4, minChunks)
	assert.Equal(t, 4, maxChunks)
}

func TestResolveLayout(t *testing.T) {
	var o Options
	o.ResolveLayout()
	assert.Equal(t, ".", o.StoryDir)
	assert.Equal(t, filepath.Join(".", "scenes"), o.ScenesDir)
	assert.Equal(t, filepath.Join(".", "boards"), o.BoardsDir)

	o = Options{StoryDir: "my-story", ScenesDir: "custom-scenes"}
	o.ResolveLayout()
	assert.Equal(t, "custom-scenes", o.ScenesDir)
	assert.Equal(t, filepath.Join("my-story", "boards"), o.BoardsDir)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"# comment\nFOO_FROM_FILE=abc\nQUOTED='xyz'\nEXISTING=file-value\nbroken line\n"), 0o644))

	t.Setenv("EXISTING", "env-value")
	t.Setenv("FOO_FROM_FILE", "")
	os.Unsetenv("FOO_FROM_FILE")
	t.Setenv("QUOTED", "")
	os.Unsetenv("QUOTED")

	LoadDotEnv(path)
	assert.Equal(t, "abc", os.Getenv("FOO_FROM_FILE"))
	assert.Equal(t, "xyz", os.Getenv("QUOTED"))
	// 既存の環境変数が優先なのだ。
	assert.Equal(t, "env-value", os.Getenv("EXISTING"))

	// 存在しないファイルは無視するのだ。
	LoadDotEnv(filepath.Join(dir, "missing.env"))
}

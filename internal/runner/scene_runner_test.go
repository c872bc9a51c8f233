package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

type stubTextGen struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (s *stubTextGen) GenerateText(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func sceneFixture(t *testing.T) (config.Options, *domain.ActsFile) {
	t.Helper()
	dir := t.TempDir()
	opts := config.Options{
		StoryDir:     dir,
		ScenesDir:    filepath.Join(dir, "scenes"),
		SleepBetween: 1,
	}
	acts := &domain.ActsFile{Acts: []domain.Act{
		{
			Number: 1, Title: "The Besieged City", Description: "Opening act.",
			Scenes: []domain.SceneDef{
				{Number: 1, Purpose: "Introduce the siege"},
				{Number: 2, Purpose: "Joel hears the signal"},
			},
		},
		{
			Number: 2, Title: "The Search", Description: "Middle act.",
			Scenes: []domain.SceneDef{
				{Number: 3, Purpose: "Leave the walls behind"},
			},
		},
	}}
	return opts, acts
}

func TestSceneRunnerWritesAllScenes(t *testing.T) {
	opts, acts := sceneFixture(t)
	gen := &stubTextGen{reply: "# Scene X\n\n## Opening\n\nProse."}
	writer := &localWriter{}

	runner := NewSceneRunner(gen, writer, domain.NewDefinitions(), acts, opts, io.Discard)
	require.NoError(t, runner.Run(context.Background()))

	require.Len(t, gen.prompts, 3)
	assert.FileExists(t, filepath.Join(opts.ScenesDir, "scene-0001.md"))
	assert.FileExists(t, filepath.Join(opts.ScenesDir, "scene-0002.md"))
	assert.FileExists(t, filepath.Join(opts.ScenesDir, "scene-0003.md"))

	// 後続シーンのプロンプトには直前シーンの要約行が載るのだ。
	assert.Contains(t, gen.prompts[1], "Scene 1: Introduce the siege")
	assert.Contains(t, gen.prompts[2], "Scene 2: Joel hears the signal")
	assert.NotContains(t, gen.prompts[0], "Scene 1: Introduce the siege")
}

func TestSceneRunnerSkipsExistingButCarriesSummary(t *testing.T) {
	opts, acts := sceneFixture(t)
	require.NoError(t, os.MkdirAll(opts.ScenesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(opts.ScenesDir, "scene-0001.md"), []byte("# Scene 1\n"), 0o644))

	gen := &stubTextGen{reply: "prose"}
	runner := NewSceneRunner(gen, &localWriter{}, domain.NewDefinitions(), acts, opts, io.Discard)
	require.NoError(t, runner.Run(context.Background()))

	// シーン1は生成されずともシーン2のプロンプトに要約として現れるのだ。
	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[0], "Scene 1: Introduce the siege")
}

func TestSceneRunnerRangeFilter(t *testing.T) {
	opts, acts := sceneFixture(t)
	opts.StartScene = 2
	opts.EndScene = 2

	gen := &stubTextGen{reply: "prose"}
	runner := NewSceneRunner(gen, &localWriter{}, domain.NewDefinitions(), acts, opts, io.Discard)
	require.NoError(t, runner.Run(context.Background()))

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Joel hears the signal")
	assert.NoFileExists(t, filepath.Join(opts.ScenesDir, "scene-0001.md"))
	assert.FileExists(t, filepath.Join(opts.ScenesDir, "scene-0002.md"))
}

func TestSceneRunnerEmptyRange(t *testing.T) {
	opts, acts := sceneFixture(t)
	opts.StartScene = 10

	runner := NewSceneRunner(&stubTextGen{}, &localWriter{}, domain.NewDefinitions(), acts, opts, io.Discard)
	err := runner.Run(context.Background())
	require.ErrorIs(t, err, ErrNoWork)
}

func TestSceneRunnerCorePremiseOverride(t *testing.T) {
	opts, acts := sceneFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(opts.StoryDir, "core-premise.md"), []byte("The city dreams itself.\n"), 0o644))

	gen := &stubTextGen{reply: "prose"}
	runner := NewSceneRunner(gen, &localWriter{}, domain.NewDefinitions(), acts, opts, io.Discard)
	require.NoError(t, runner.Run(context.Background()))

	assert.Contains(t, gen.prompts[0], "The city dreams itself.")
	assert.NotContains(t, gen.prompts[0], "systems engineer")
}

func TestSceneRunnerDefaultCorePremise(t *testing.T) {
	opts, acts := sceneFixture(t)
	gen := &stubTextGen{reply: "prose"}
	runner := NewSceneRunner(gen, &localWriter{}, domain.NewDefinitions(), acts, opts, io.Discard)
	require.NoError(t, runner.Run(context.Background()))
	assert.Contains(t, gen.prompts[0], "simulation")
}

func TestSceneRunnerContinuesAfterGenerationFailure(t *testing.T) {
	opts, acts := sceneFixture(t)
	gen := &stubTextGen{err: errors.New("quota exceeded")}

	runner := NewSceneRunner(gen, &localWriter{}, domain.NewDefinitions(), acts, opts, io.Discard)
	require.NoError(t, runner.Run(context.Background()))

	// 全シーンで失敗しても実行自体は完走し、ファイルは1つも書かれないのだ。
	assert.Len(t, gen.prompts, 3)
	assert.NoFileExists(t, filepath.Join(opts.ScenesDir, "scene-0001.md"))
}

func TestSceneRunnerDryRun(t *testing.T) {
	opts, acts := sceneFixture(t)
	opts.DryRun = true
	gen := &stubTextGen{}
	var out bytes.Buffer

	runner := NewSceneRunner(gen, &localWriter{}, domain.NewDefinitions(), acts, opts, &out)
	require.NoError(t, runner.Run(context.Background()))

	assert.Empty(t, gen.prompts)
	assert.Contains(t, out.String(), "--- scene 1 ---")
	// ドライランでも要約の持ち越しは行われるのだ。
	assert.Contains(t, out.String(), "Scene 2: Joel hears the signal")
}

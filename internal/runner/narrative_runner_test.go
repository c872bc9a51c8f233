package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/interview"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

type routedTextGen struct {
	route func(prompt string) (string, error)
}

func (g *routedTextGen) GenerateText(_ context.Context, prompt string) (string, error) {
	return g.route(prompt)
}

const actsJSON = "```json\n" + `[
  {"number": 1, "title": "The Siege", "description": "Opening.", "scenes": [
    {"number": 1, "purpose": "Introduce the city"},
    {"number": 2, "purpose": "The walls hold"},
    {"number": 3, "purpose": "A crack appears"},
    {"number": 4, "purpose": "The gate falls"}
  ]},
  {"number": 2, "title": "The Road", "description": "Middle.", "scenes": [
    {"number": 1, "purpose": "Leaving home"},
    {"number": 2, "purpose": "The first night"},
    {"number": 3, "purpose": "A guide appears"},
    {"number": 4, "purpose": "The pass"}
  ]},
  {"number": 3, "title": "The Return", "description": "Closing.", "scenes": [
    {"number": 1, "purpose": "The old door"},
    {"number": 2, "purpose": "Nothing is the same"},
    {"number": 3, "purpose": "Recognition"},
    {"number": 4, "purpose": "Rest"}
  ]}
]` + "\n```"

const definitionsJSON = `{
  "characters": {"joel": {"name": "Joel", "description": "a weary pilgrim"}},
  "settings": {"city": {"name": "The City", "era": "present-day"}},
  "extras": {},
  "style": {"coloring": "watercolor"}
}`

func narrativeGen(t *testing.T) *routedTextGen {
	t.Helper()
	return &routedTextGen{route: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Los Cuatro Ciclos"):
			return actsJSON, nil
		case strings.Contains(prompt, "definitions.json"):
			return definitionsJSON, nil
		default:
			return "", errors.New("unexpected prompt")
		}
	}}
}

// 質問順: コンセプト → 展開確認 → 時代 → 幕構成の選択 →
// キャラ → 舞台 → エクストラ → スタイル。
const interviewScript = "A besieged city dreams of the road home.\nn\n\n1\n\n\n\nwatercolor and thin lines\n"

func TestNarrativeRunnerCreatesStoryScaffold(t *testing.T) {
	dir := t.TempDir()
	opts := config.Options{OutputName: filepath.Join(dir, "siege")}
	prompter := interview.New(strings.NewReader(interviewScript), io.Discard)

	runner := NewNarrativeRunner(narrativeGen(t), &localWriter{}, prompter, opts, io.Discard)
	require.NoError(t, runner.Run(context.Background()))

	storyDir := opts.OutputName
	assert.DirExists(t, filepath.Join(storyDir, "scenes"))
	assert.DirExists(t, filepath.Join(storyDir, "boards"))
	assert.FileExists(t, filepath.Join(storyDir, "README.md"))

	acts, err := domain.LoadActs(filepath.Join(storyDir, config.DefaultActsFile))
	require.NoError(t, err)
	require.Len(t, acts.Acts, 3)
	assert.Equal(t, "The Siege", acts.Acts[0].Title)
	// シーン番号は幕をまたいで通し番号に正規化されるのだ。
	flat := acts.Flatten()
	require.Len(t, flat, 12)
	assert.Equal(t, 5, flat[4].SceneNumber)

	defs, err := domain.LoadDefinitions(filepath.Join(storyDir, config.DefaultDefinitionsFile))
	require.NoError(t, err)
	assert.Equal(t, "Joel", defs.Characters["joel"].Name)
	assert.Equal(t, "watercolor", defs.Style.Coloring)

	premise, err := os.ReadFile(filepath.Join(storyDir, "core-premise.md"))
	require.NoError(t, err)
	assert.Equal(t, "A besieged city dreams of the road home.\n", string(premise))
}

func TestNarrativeRunnerFallsBackOnBadActsJSON(t *testing.T) {
	dir := t.TempDir()
	opts := config.Options{OutputName: filepath.Join(dir, "siege")}
	gen := &routedTextGen{route: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Los Cuatro Ciclos") {
			return "not json at all", nil
		}
		return definitionsJSON, nil
	}}
	prompter := interview.New(strings.NewReader(interviewScript), io.Discard)

	runner := NewNarrativeRunner(gen, &localWriter{}, prompter, opts, io.Discard)
	require.NoError(t, runner.Run(context.Background()))

	acts, err := domain.LoadActs(filepath.Join(opts.OutputName, config.DefaultActsFile))
	require.NoError(t, err)
	require.Len(t, acts.Acts, 3)
	assert.Equal(t, "The Troy Cycle", acts.Acts[0].Title)
	assert.Len(t, acts.Acts[0].Scenes, 4)
}

func TestNarrativeRunnerRefusesOverwriteWithoutConsent(t *testing.T) {
	dir := t.TempDir()
	storyDir := filepath.Join(dir, "siege")
	require.NoError(t, os.MkdirAll(storyDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(storyDir, config.DefaultActsFile), []byte(`{"acts":[]}`), 0o644))

	opts := config.Options{OutputName: storyDir}
	prompter := interview.New(strings.NewReader("n\n"), io.Discard)

	runner := NewNarrativeRunner(narrativeGen(t), &localWriter{}, prompter, opts, io.Discard)
	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "EOF")
}

func TestNarrativeRunnerDryRunSkipsGeneration(t *testing.T) {
	dir := t.TempDir()
	opts := config.Options{OutputName: filepath.Join(dir, "siege"), DryRun: true}
	gen := &routedTextGen{route: func(string) (string, error) {
		t.Fatal("dry run must not call the generator")
		return "", nil
	}}
	// ドライランでは展開確認が出ないため回答行が1つ減るのだ。
	script := "A besieged city.\n\n1\n\n\n\n\n"
	prompter := interview.New(strings.NewReader(script), io.Discard)
	var out bytes.Buffer

	runner := NewNarrativeRunner(gen, &localWriter{}, prompter, opts, &out)
	require.NoError(t, runner.Run(context.Background()))

	assert.Contains(t, out.String(), "Los Cuatro Ciclos")
	acts, err := domain.LoadActs(filepath.Join(opts.OutputName, config.DefaultActsFile))
	require.NoError(t, err)
	assert.Len(t, acts.Acts, 3)
}

package refs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boardPaths(dir string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = filepath.Join(dir, sceneName(i))
	}
	return out
}

// 正準参照が存在する登場人物には、過去のボード画像が何枚あっても
// その1枚だけを添付します。
func TestSelect_CanonicalSuppressesRecents(t *testing.T) {
	dir := t.TempDir()
	canonical := writeFile(t, dir, "ref-joel.png")

	lib := Load(dir)
	lib.Characters["Joel"] = boardPaths(dir, 5)

	sel := NewSelector(lib, 0)
	picked := sel.Select([]string{"Joel"}, nil, nil, ViewOutdoor)
	assert.Equal(t, []string{canonical}, picked)
}

func TestSelect_TwoMostRecentWithoutCanonical(t *testing.T) {
	dir := t.TempDir()
	lib := Load(dir)
	lib.Characters["Mary"] = boardPaths(dir, 5)

	picked := NewSelector(lib, 0).Select([]string{"Mary"}, nil, nil, ViewOutdoor)
	assert.Equal(t, lib.Characters["Mary"][:2], picked)
}

func TestSelect_SettingOnePerView(t *testing.T) {
	dir := t.TempDir()
	lib := Load(dir)
	lib.InsertSetting("Galilee", ViewIndoor, filepath.Join(dir, "in-old.png"))
	lib.InsertSetting("Galilee", ViewIndoor, filepath.Join(dir, "in-new.png"))
	lib.InsertSetting("Galilee", ViewOutdoor, filepath.Join(dir, "out.png"))

	sel := NewSelector(lib, 0)
	assert.Equal(t, []string{filepath.Join(dir, "in-new.png")},
		sel.Select(nil, nil, []string{"Galilee"}, ViewIndoor))
	assert.Equal(t, []string{filepath.Join(dir, "out.png")},
		sel.Select(nil, nil, []string{"Galilee"}, ViewOutdoor))
}

func TestSelect_StyleReferenceAlwaysFirst(t *testing.T) {
	dir := t.TempDir()
	style := writeFile(t, dir, "ref-style.png")
	writeFile(t, dir, "ref-joel.png")

	lib := Load(dir)
	picked := NewSelector(lib, 0).Select([]string{"Joel"}, nil, nil, ViewOutdoor)
	require.Len(t, picked, 2)
	assert.Equal(t, style, picked[0])

	// 検出エンティティが無くてもスタイル参照は添付されます。
	assert.Equal(t, []string{style}, NewSelector(lib, 0).Select(nil, nil, nil, ViewOutdoor))
}

func TestSelect_DedupeAndTotalCap(t *testing.T) {
	dir := t.TempDir()
	lib := Load(dir)

	shared := filepath.Join(dir, "shared.png")
	lib.Characters["Joel"] = []string{shared}
	lib.Extras["Merchant"] = []string{shared}
	picked := NewSelector(lib, 0).Select([]string{"Joel"}, []string{"Merchant"}, nil, ViewOutdoor)
	assert.Equal(t, []string{shared}, picked)

	// 上限は全体で適用されます。
	for i, name := range []string{"A", "B", "C"} {
		lib.Characters[name] = boardPaths(dir, 5)[i : i+2]
	}
	capped := NewSelector(lib, 3).Select([]string{"A", "B", "C"}, nil, nil, ViewOutdoor)
	assert.Len(t, capped, 3)
}

func TestRecord_FlushesImmediately(t *testing.T) {
	dir := t.TempDir()
	lib := Load(dir)
	sel := NewSelector(lib, 0)

	board := filepath.Join(dir, "scene-0003-1.png")
	require.NoError(t, sel.Record(
		[]string{"Joel"}, []string{"Merchant"}, []string{"Galilee"}, ViewOutdoor, board))

	assert.Equal(t, []string{board}, lib.Characters["Joel"])
	assert.Equal(t, []string{board}, lib.Extras["Merchant"])
	assert.Equal(t, []string{board}, lib.Settings["Galilee"].Outdoor)
	assert.Empty(t, lib.Settings["Galilee"].Indoor)

	_, err := os.Stat(filepath.Join(dir, "setting_references.json"))
	assert.NoError(t, err)
}

package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func biblicalDefs() *domain.Definitions {
	defs := domain.NewDefinitions()
	defs.Characters["mary"] = domain.Character{Name: "Mary"}
	defs.Characters["joel"] = domain.Character{Name: "Joel", Era: "biblical"}
	defs.Characters["dana"] = domain.Character{Name: "Dana Reyes", Era: "present-day"}
	defs.Settings["galilee"] = domain.Setting{Name: "Galilee", Era: "biblical"}
	defs.Settings["ops"] = domain.Setting{
		Name:    "Operations Floor",
		Aliases: []string{"the floor"},
		Era:     "present-day",
	}
	defs.Extras["lantern"] = domain.Extra{Name: "brass lantern"}
	return defs
}

func TestCharacterPresentWithActionAndQuote(t *testing.T) {
	defs := biblicalDefs()
	res := New().Detect(`Mary stood at the well and said, "I am thirsty."`, defs)

	assert.Equal(t, []string{"Mary"}, res.CharacterNames())
}

func TestCharacterMerelyMentionedIsAbsent(t *testing.T) {
	defs := biblicalDefs()
	res := New().Detect(`Mary's hometown was famous for its well.`, defs)

	assert.Empty(t, res.CharacterNames())
}

func TestSettingRequiresLocativeOrHeader(t *testing.T) {
	d := New()
	defs := biblicalDefs()

	res := d.Detect("The crowd gathered in Galilee before dawn.", defs)
	assert.Equal(t, []string{"Galilee"}, res.SettingNames())

	res = d.Detect("## Galilee, Morning\n\nThe crowd gathered before dawn.", defs)
	assert.Equal(t, []string{"Galilee"}, res.SettingNames())

	// 裸の言及（前置詞も見出しも無し）は現在地として数えない。
	res = d.Detect("Galilee was a name he barely remembered now.", defs)
	assert.Empty(t, res.SettingNames())
}

func TestSettingReferenceIndicatorWinsOverLocative(t *testing.T) {
	defs := biblicalDefs()
	res := New().Detect("They were heading toward Galilee in the dark.", defs)

	assert.Empty(t, res.SettingNames())
}

func TestEraFilterExcludesMismatchedCharacters(t *testing.T) {
	defs := biblicalDefs()
	text := "## Operations Floor\n\n" +
		`Joel stood by the console. Dana Reyes said, "Run it again."`

	res := New().Detect(text, defs)

	require.Equal(t, []string{"Operations Floor"}, res.SettingNames())
	// Joel はテキスト上存在するが、時代が合わないので除外される。
	assert.Equal(t, []string{"Dana Reyes"}, res.CharacterNames())
}

func TestEraFilterNeverExcludesUntaggedCharacters(t *testing.T) {
	defs := biblicalDefs()
	text := "## Operations Floor\n\n" + `Mary walked across the floor and said, "Hello."`

	res := New().Detect(text, defs)

	assert.Contains(t, res.CharacterNames(), "Mary")
}

func TestMultiWordNameSingleComponentNeedsCapital(t *testing.T) {
	defs := domain.NewDefinitions()
	defs.Characters["reyes"] = domain.Character{Name: "Dana Reyes"}
	d := New()

	// 大文字の姓＋行動動詞は通す。
	res := d.Detect("Reyes walked to the window.", defs)
	assert.Equal(t, []string{"Dana Reyes"}, res.CharacterNames())

	// 一般名詞としての小文字一致は複合語の誤爆なので弾く。
	defs.Characters["summer"] = domain.Character{Name: "Summer Hale"}
	res = d.Detect("The long summer said nothing to anyone.", defs)
	assert.NotContains(t, res.CharacterNames(), "Summer Hale")
}

func TestExtraMatchesOnExactWordOnly(t *testing.T) {
	defs := biblicalDefs()
	d := New()

	res := d.Detect("A brass lantern hung from the beam.", defs)
	require.Len(t, res.Extras, 1)
	assert.Equal(t, "brass lantern", res.Extras[0].Name)

	res = d.Detect("The lanternlight flickered.", defs)
	assert.Empty(t, res.Extras)
}

func TestDetectPurposeSkipsContextRequirement(t *testing.T) {
	defs := biblicalDefs()
	res := New().DetectPurpose("Joel confronts the elders in Galilee", defs)

	assert.Equal(t, []string{"Joel"}, res.CharacterNames())
	assert.Equal(t, []string{"Galilee"}, res.SettingNames())
}

func TestDetectPurposeAppliesEraFilter(t *testing.T) {
	defs := biblicalDefs()
	res := New().DetectPurpose("Joel appears on the Operations Floor", defs)

	assert.Equal(t, []string{"Operations Floor"}, res.SettingNames())
	assert.Empty(t, res.CharacterNames())
}

func TestDetectNeverDuplicatesEntities(t *testing.T) {
	defs := biblicalDefs()
	text := `Mary stood up. Mary said, "Wait." Mary walked away.`

	res := New().Detect(text, defs)

	assert.Equal(t, []string{"Mary"}, res.CharacterNames())
}

func TestFallbackAdmitsNameNearSpeechVerb(t *testing.T) {
	defs := domain.NewDefinitions()
	// 行動動詞リストに無い動きでも、発話の近傍なら最終フォールバックで拾う。
	defs.Characters["tamar"] = domain.Character{Name: "Tamar"}

	res := New().Detect(`Not yet, Tamar muttered into the dark.`, defs)

	assert.Equal(t, []string{"Tamar"}, res.CharacterNames())
}

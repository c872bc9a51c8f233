package interview

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsk(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("\n\nan answer\n"), &out)

	// デフォルトありの空回答はデフォルトを返します。
	got, err := p.Ask("Story concept", "a siege", true)
	require.NoError(t, err)
	assert.Equal(t, "a siege", got)

	// 必須の質問は空回答を受け付けず、聞き直します。
	got, err = p.Ask("Story concept", "", true)
	require.NoError(t, err)
	assert.Equal(t, "an answer", got)
	assert.Contains(t, out.String(), "This field is required")
}

func TestAsk_OptionalEmpty(t *testing.T) {
	p := New(strings.NewReader("\n"), io.Discard)
	got, err := p.Ask("Extras", "", false)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestAsk_EOF(t *testing.T) {
	p := New(strings.NewReader(""), io.Discard)
	_, err := p.Ask("q", "", true)
	assert.ErrorIs(t, err, io.EOF)
}

func TestYesNo(t *testing.T) {
	p := New(strings.NewReader("\nmaybe\nno\nYES\n"), io.Discard)

	got, err := p.YesNo("Expand?", true)
	require.NoError(t, err)
	assert.True(t, got) // 空回答はデフォルト

	got, err = p.YesNo("Expand?", true)
	require.NoError(t, err)
	assert.False(t, got) // "maybe" は聞き直して "no"

	got, err = p.YesNo("Expand?", false)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestChoice(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("9\nx\n2\n"), &out)

	got, err := p.Choice("Act structure", []string{"3 acts", "5 acts"})
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Contains(t, out.String(), "1. 3 acts")
	assert.Contains(t, out.String(), "Invalid input")
}

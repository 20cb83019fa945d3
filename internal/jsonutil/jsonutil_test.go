package jsonutil

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

type sample struct {
	Name     string `json:"name"`
	Size     int64  `json:"size,omitempty"`
	Internal string `json:"-"`
	Plain    bool
	hidden   int
}

func TestMarshalCompactPretty(t *testing.T) {
	b, err := MarshalCompactPretty(sample{Name: "foo", Size: 40, Internal: "x", Plain: true, hidden: 1})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(ansi.ReplaceAllString(string(b), "")), "\n")
	assert.Equal(t, []string{`name: "foo"`, "size: 40", "Plain: true"}, lines)
}

func TestMarshalCompactPrettyNotStruct(t *testing.T) {
	b, err := MarshalCompactPretty([]string{"a"})
	require.NoError(t, err)
	assert.Contains(t, ansi.ReplaceAllString(string(b), ""), `"a"`)
}

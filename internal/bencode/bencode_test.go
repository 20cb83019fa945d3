package bencode

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDictionary(t *testing.T) {
	v, err := Parse([]byte("d8:announce3:foo4:infod6:lengthi40e4:name4:testee"), Limits{})
	require.NoError(t, err)
	assert.Equal(t, Dictionary, v.Kind)
	assert.Len(t, v.Dict, 2)

	ann, ok := v.Get("announce")
	require.True(t, ok)
	assert.Equal(t, ByteString, ann.Kind)
	assert.Equal(t, "foo", ann.Bytes)

	info, ok := v.Get("info")
	require.True(t, ok)
	length, ok := info.Get("length")
	require.True(t, ok)
	assert.Equal(t, Integer, length.Kind)
	assert.Equal(t, int64(40), length.Int)
}

func TestParseList(t *testing.T) {
	v, err := Parse([]byte("li-3e0:l1:aee"), Limits{})
	require.NoError(t, err)
	require.Equal(t, List, v.Kind)
	require.Len(t, v.List, 3)
	assert.Equal(t, int64(-3), v.List[0].Int)
	assert.Equal(t, "", v.List[1].Bytes)
	assert.Equal(t, List, v.List[2].Kind)
}

func TestParseBinaryString(t *testing.T) {
	v, err := Parse([]byte("4:\x00\xffe:"), Limits{})
	require.NoError(t, err)
	assert.Equal(t, "\x00\xffe:", v.Bytes)
}

func TestParseMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"garbage":          "some garbage data",
		"unterminated":     "d3:foo",
		"trailing":         "i1ei2e",
		"leading zero":     "i03e",
		"negative zero":    "i-0e",
		"empty int":        "ie",
		"integer key":      "di1ei2ee",
		"missing value":    "d3:fooe",
		"short string":     "5:abc",
		"stray end":        "e",
		"string length 01": "01:a",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input), Limits{})
			assert.Error(t, err)
		})
	}
}

func TestParseDepthLimit(t *testing.T) {
	deep := strings.Repeat("l", 100) + strings.Repeat("e", 100)
	_, err := Parse([]byte(deep), Limits{MaxDepth: 10})
	assert.True(t, errors.Is(err, ErrTooDeep))

	_, err = Parse([]byte(deep), Limits{MaxDepth: 100})
	assert.NoError(t, err)
}

func TestParseSizeLimit(t *testing.T) {
	_, err := Parse([]byte("10:0123456789"), Limits{MaxSize: 5})
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestEncodeSortsKeys(t *testing.T) {
	v := NewDict(map[string]Value{
		"zeta":  NewInt(1),
		"alpha": NewList(NewString("x"), NewInt(2)),
	})
	b, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, "d5:alphal1:xi2ee4:zetai1ee", string(b))

	v2, err := Parse(b, Limits{})
	require.NoError(t, err)
	assert.Equal(t, v, v2)
}

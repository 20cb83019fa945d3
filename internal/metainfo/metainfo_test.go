package metainfo

import (
	"bytes"
	"crypto/sha1" // nolint: gosec
	"errors"
	"strings"
	"testing"

	"github.com/seedbox/torrentd/internal/bencode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTorrent builds the same minimal single-file torrent an API client would upload.
func testTorrent(t *testing.T) []byte {
	content := []byte("This is a test file for torrent testing.")
	sum := sha1.Sum(content) // nolint: gosec
	v := bencode.NewDict(map[string]bencode.Value{
		"announce": bencode.NewString("http://tracker.example.com:8080/announce"),
		"info": bencode.NewDict(map[string]bencode.Value{
			"name":         bencode.NewString("test-file.txt"),
			"length":       bencode.NewInt(int64(len(content))),
			"piece length": bencode.NewInt(32768),
			"pieces":       bencode.NewString(string(sum[:])),
		}),
	})
	b, err := bencode.Encode(v)
	require.NoError(t, err)
	return b
}

func TestTorrent(t *testing.T) {
	tor, err := New(bytes.NewReader(testTorrent(t)), bencode.Limits{})
	require.NoError(t, err)

	assert.Equal(t, "test-file.txt", tor.Info.Name)
	assert.Equal(t, int64(40), tor.Info.Length)
	assert.Equal(t, int64(40), tor.Info.TotalLength)
	assert.Equal(t, uint32(32768), tor.Info.PieceLength)
	assert.Equal(t, uint32(1), tor.Info.NumPieces)
	assert.Equal(t, "http://tracker.example.com:8080/announce", tor.Announce)
	assert.Equal(t, [][]string{{"http://tracker.example.com:8080/announce"}}, tor.AnnounceList)
	assert.Equal(t, []string{"http://tracker.example.com:8080/announce"}, tor.Trackers())
	assert.Len(t, tor.Info.HashString(), 40)
}

func TestTorrentInvalid(t *testing.T) {
	cases := map[string]string{
		"garbage":     "some garbage data",
		"not a dict":  "l4:infoe",
		"no info":     "d8:announce3:fooe",
		"info string": "d4:info3:fooe",
		"no name":     "d4:infod6:lengthi1e12:piece lengthi32e6:pieces20:" + strings.Repeat("a", 20) + "ee",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(strings.NewReader(input), bencode.Limits{})
			assert.Error(t, err)
		})
	}
}

func TestTorrentTooLarge(t *testing.T) {
	b := testTorrent(t)
	_, err := New(bytes.NewReader(b), bencode.Limits{MaxSize: len(b) - 1})
	assert.True(t, errors.Is(err, bencode.ErrTooLarge))
}

func TestEncodeRoundTrip(t *testing.T) {
	info, err := NewInfoBytes("foo", strings.NewReader("hello"), 5, 0, false)
	require.NoError(t, err)
	trackers := [][]string{{"http://a.example/announce"}, {"udp://b.example:80"}}
	b, err := Encode(info, trackers, "comment")
	require.NoError(t, err)

	mi, err := NewBytes(b, bencode.Limits{})
	require.NoError(t, err)
	assert.Equal(t, "foo", mi.Info.Name)
	assert.Equal(t, trackers, mi.AnnounceList)
	assert.Equal(t, "comment", mi.Comment)
	assert.Equal(t, Creator, mi.CreatedBy)
	assert.False(t, mi.CreationDate.IsZero())
}

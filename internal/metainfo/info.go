package metainfo

import (
	"crypto/sha1" // nolint: gosec
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/zeebo/bencode"
)

var (
	errInvalidPieceData = errors.New("invalid piece data")
	errNoName           = errors.New("info has no name")
	errNoPieceLength    = errors.New("info has no piece length")
	errNegativeLength   = errors.New("negative file length")
	errLengthOverflow   = errors.New("total length overflows")
)

// Info contains information about torrent.
type Info struct {
	PieceLength uint32             `bencode:"piece length" json:"piece_length"`
	Pieces      []byte             `bencode:"pieces" json:"pieces"`
	Private     bencode.RawMessage `bencode:"private" json:"private"`
	Name        string             `bencode:"name" json:"name"`
	Length      int64              `bencode:"length" json:"length"` // Single File Mode
	Files       []FileDict         `bencode:"files" json:"files"`   // Multiple File mode

	// Calculated fields
	Hash        [20]byte `bencode:"-" json:"-"`
	TotalLength int64    `bencode:"-" json:"-"`
	NumPieces   uint32   `bencode:"-" json:"-"`
	private     bool
}

// FileDict is a file entry of a multi-file torrent.
type FileDict struct {
	Length int64    `bencode:"length" json:"length"`
	Path   []string `bencode:"path" json:"path"`
}

// NewInfo returns info from bencoded bytes in b.
func NewInfo(b []byte) (*Info, error) {
	var i Info
	if err := bencode.DecodeBytes(b, &i); err != nil {
		return nil, err
	}
	if strings.TrimSpace(i.Name) == "" {
		return nil, errNoName
	}
	if i.PieceLength == 0 {
		return nil, errNoPieceLength
	}
	if uint32(len(i.Pieces))%sha1.Size != 0 {
		return nil, errInvalidPieceData
	}
	if len(i.Private) > 0 {
		var intVal int64
		var stringVal string
		err := bencode.DecodeBytes(i.Private, &intVal)
		if err != nil {
			err = bencode.DecodeBytes(i.Private, &stringVal)
			if err == nil {
				i.private = stringVal == "1"
			}
		} else {
			i.private = intVal == 1
		}
	}
	// ".." is not allowed in file names
	for _, file := range i.Files {
		if file.Length < 0 {
			return nil, errNegativeLength
		}
		for _, path := range file.Path {
			if strings.TrimSpace(path) == ".." {
				return nil, fmt.Errorf("invalid file name: %q", filepath.Join(file.Path...))
			}
		}
	}
	if i.Length < 0 {
		return nil, errNegativeLength
	}
	i.NumPieces = uint32(len(i.Pieces)) / sha1.Size
	if !i.MultiFile() {
		i.TotalLength = i.Length
	} else {
		for _, f := range i.Files {
			if f.Length > math.MaxInt64-i.TotalLength {
				return nil, errLengthOverflow
			}
			i.TotalLength += f.Length
		}
	}
	totalPieceDataLength := int64(i.PieceLength) * int64(i.NumPieces)
	delta := totalPieceDataLength - i.TotalLength
	if delta >= int64(i.PieceLength) || delta < 0 {
		return nil, errInvalidPieceData
	}
	hash := sha1.New()   // nolint: gosec
	_, _ = hash.Write(b) // nolint: gosec
	copy(i.Hash[:], hash.Sum(nil))
	return &i, nil
}

// MultiFile returns true if the torrent contains a files list.
func (i *Info) MultiFile() bool {
	return len(i.Files) != 0
}

// HashString returns the info hash in hex as 40 characters.
func (i *Info) HashString() string {
	return hex.EncodeToString(i.Hash[:])
}

// GetFiles returns the files in torrent as a slice, even if there is a single file.
func (i *Info) GetFiles() []FileDict {
	if i.MultiFile() {
		return i.Files
	}
	return []FileDict{{i.Length, []string{i.Name}}}
}

// IsPrivate returns true if the private flag is set in info dict.
func (i *Info) IsPrivate() bool {
	if i == nil {
		return false
	}
	return i.private
}

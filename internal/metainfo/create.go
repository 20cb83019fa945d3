package metainfo

import (
	"crypto/sha1" // nolint: gosec
	"errors"
	"io"
	"math/bits"

	"github.com/zeebo/bencode"
)

const (
	maxPieces      = 2000
	minPieceLength = 32 << 10
	maxPieceLength = 16 << 20
)

// NewInfoBytes reads length bytes of content from r and returns a bencoded single-file info dict.
// If pieceLength is zero, a value is picked from the content length.
func NewInfoBytes(name string, r io.Reader, length int64, pieceLength uint32, private bool) ([]byte, error) {
	if name == "" {
		return nil, errNoName
	}
	if length < 0 {
		return nil, errNegativeLength
	}
	if pieceLength == 0 {
		pieceLength = calculatePieceLength(length)
	}
	pieces, err := hashPieces(r, length, pieceLength)
	if err != nil {
		return nil, err
	}
	info := struct {
		PieceLength uint32 `bencode:"piece length"`
		Pieces      []byte `bencode:"pieces"`
		Name        string `bencode:"name"`
		Length      int64  `bencode:"length"`
		Private     int64  `bencode:"private,omitempty"`
	}{
		PieceLength: pieceLength,
		Pieces:      pieces,
		Name:        name,
		Length:      length,
	}
	if private {
		info.Private = 1
	}
	return bencode.EncodeBytes(info)
}

func hashPieces(r io.Reader, length int64, pieceLength uint32) ([]byte, error) {
	var pieces []byte
	buf := make([]byte, pieceLength)
	var read int64
	for read < length {
		n := int64(pieceLength)
		if length-read < n {
			n = length - read
		}
		_, err := io.ReadFull(r, buf[:n])
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, errors.New("content is shorter than length")
		}
		if err != nil {
			return nil, err
		}
		sum := sha1.Sum(buf[:n]) // nolint: gosec
		pieces = append(pieces, sum[:]...)
		read += n
	}
	return pieces, nil
}

func calculatePieceLength(totalLength int64) uint32 {
	pieceLength := totalLength / maxPieces
	if pieceLength < minPieceLength {
		return minPieceLength
	}
	if pieceLength > maxPieceLength {
		return maxPieceLength
	}
	// round up to the next power of two
	return uint32(1) << bits.Len64(uint64(pieceLength-1))
}

// Package metainfo support for reading and writing torrent files.
package metainfo

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/seedbox/torrentd/internal/bencode"
	zbencode "github.com/zeebo/bencode"
)

// Creator is the string that is put into the created torrent by NewBytes function.
var Creator = "torrentd"

// MetaInfo file dictionary
type MetaInfo struct {
	Info         Info
	Announce     string
	AnnounceList [][]string
	Comment      string
	CreatedBy    string
	CreationDate time.Time
}

var (
	errNotDict  = errors.New("torrent file is not a dictionary")
	errNoInfo   = errors.New("no info dict in torrent file")
	errInfoType = errors.New("info is not a dictionary")
)

// New returns a torrent from bencoded stream.
// The stream is read up to lim.MaxSize bytes and checked against lim before decoding.
func New(r io.Reader, lim bencode.Limits) (*MetaInfo, error) {
	if lim.MaxSize <= 0 {
		lim.MaxSize = bencode.DefaultLimits.MaxSize
	}
	b, err := io.ReadAll(io.LimitReader(r, int64(lim.MaxSize)+1))
	if err != nil {
		return nil, err
	}
	return NewBytes(b, lim)
}

// NewBytes parses a torrent from b.
func NewBytes(b []byte, lim bencode.Limits) (*MetaInfo, error) {
	v, err := bencode.Parse(b, lim)
	if err != nil {
		return nil, err
	}
	if v.Kind != bencode.Dictionary {
		return nil, errNotDict
	}
	iv, ok := v.Get("info")
	if !ok {
		return nil, errNoInfo
	}
	if iv.Kind != bencode.Dictionary {
		return nil, errInfoType
	}
	var t struct {
		Info         zbencode.RawMessage `bencode:"info"`
		Announce     zbencode.RawMessage `bencode:"announce"`
		AnnounceList zbencode.RawMessage `bencode:"announce-list"`
		Comment      string              `bencode:"comment"`
		CreatedBy    string              `bencode:"created by"`
		CreationDate int64               `bencode:"creation date"`
	}
	err = zbencode.DecodeBytes(b, &t)
	if err != nil {
		return nil, err
	}
	info, err := NewInfo(t.Info)
	if err != nil {
		return nil, err
	}
	ret := &MetaInfo{
		Info:      *info,
		Comment:   t.Comment,
		CreatedBy: t.CreatedBy,
	}
	if t.CreationDate > 0 {
		ret.CreationDate = time.Unix(t.CreationDate, 0).UTC()
	}
	if len(t.Announce) > 0 {
		var s string
		err = zbencode.DecodeBytes(t.Announce, &s)
		if err != nil {
			return nil, fmt.Errorf("invalid announce: %w", err)
		}
		ret.Announce = s
	}
	if len(t.AnnounceList) > 0 {
		var ll [][]string
		err = zbencode.DecodeBytes(t.AnnounceList, &ll)
		if err == nil {
			for _, tier := range ll {
				var ti []string
				for _, t := range tier {
					if isTrackerSupported(t) {
						ti = append(ti, t)
					}
				}
				if len(ti) > 0 {
					ret.AnnounceList = append(ret.AnnounceList, ti)
				}
			}
		}
	}
	if len(ret.AnnounceList) == 0 && isTrackerSupported(ret.Announce) {
		ret.AnnounceList = [][]string{{ret.Announce}}
	}
	return ret, nil
}

// Trackers returns the tracker URLs of all tiers in order.
func (m *MetaInfo) Trackers() []string {
	var ret []string
	for _, tier := range m.AnnounceList {
		ret = append(ret, tier...)
	}
	return ret
}

func isTrackerSupported(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "udp://")
}

// Encode creates a new torrent metadata file from given information.
func Encode(info []byte, trackers [][]string, comment string) ([]byte, error) {
	mi := struct {
		Info         zbencode.RawMessage `bencode:"info"`
		Announce     string              `bencode:"announce,omitempty"`
		AnnounceList [][]string          `bencode:"announce-list,omitempty"`
		Comment      string              `bencode:"comment,omitempty"`
		CreationDate int64               `bencode:"creation date"`
		CreatedBy    string              `bencode:"created by,omitempty"`
	}{
		Info:         info,
		Comment:      comment,
		CreationDate: time.Now().UTC().Unix(),
		CreatedBy:    Creator,
	}
	if len(trackers) > 0 && len(trackers[0]) > 0 {
		mi.Announce = trackers[0][0]
	}
	if len(trackers) > 1 || (len(trackers) == 1 && len(trackers[0]) > 1) {
		mi.AnnounceList = trackers
	}
	return zbencode.EncodeBytes(mi)
}

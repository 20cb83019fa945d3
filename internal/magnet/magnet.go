// Package magnet parses and formats magnet links.
package magnet

import (
	"encoding/base32"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/multiformats/go-multihash"
)

// Magnet identifies a torrent by its info hash.
type Magnet struct {
	InfoHash [20]byte
	Name     string
	// Trackers are ordered by tier. Untiered "tr" params come first.
	Trackers []string
}

// New parses s. Only "urn:btih:" (hex or base32) and "urn:btmh:" (SHA-1 multihash) topics are accepted.
func New(s string) (*Magnet, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "magnet" {
		return nil, errors.New("not a magnet link")
	}
	params := u.Query()
	xts := params["xt"]
	if len(xts) == 0 {
		return nil, errors.New("missing xt param")
	}

	var m Magnet
	m.InfoHash, err = parseTopic(xts[0])
	if err != nil {
		return nil, err
	}
	if dn := params["dn"]; len(dn) != 0 {
		m.Name = dn[0]
	}
	m.Trackers = parseTrackers(params)
	return &m, nil
}

type tier struct {
	index    int
	trackers []string
}

func parseTrackers(params url.Values) []string {
	tiers := []tier{{index: -1, trackers: params["tr"]}}
	for key, values := range params {
		if !strings.HasPrefix(key, "tr.") {
			continue
		}
		i, err := strconv.Atoi(key[3:])
		if err != nil || i < 0 {
			continue
		}
		tiers = append(tiers, tier{index: i, trackers: values})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].index < tiers[j].index })

	var trackers []string
	seen := make(map[string]struct{})
	for _, t := range tiers {
		for _, tr := range t.trackers {
			if _, ok := seen[tr]; ok {
				continue
			}
			seen[tr] = struct{}{}
			trackers = append(trackers, tr)
		}
	}
	return trackers
}

// String formats the link with a lowercase hex info hash.
func (m *Magnet) String() string {
	var b strings.Builder
	b.WriteString("magnet:?xt=urn:btih:")
	b.WriteString(hex.EncodeToString(m.InfoHash[:]))
	if m.Name != "" {
		b.WriteString("&dn=")
		b.WriteString(url.QueryEscape(m.Name))
	}
	for _, tr := range m.Trackers {
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tr))
	}
	return b.String()
}

func parseTopic(xt string) ([20]byte, error) {
	var ih [20]byte
	var b []byte
	var err error
	switch {
	case strings.HasPrefix(xt, "urn:btih:"):
		xt = xt[9:]
		switch len(xt) {
		case 40:
			b, err = hex.DecodeString(xt)
		case 32:
			b, err = base32.StdEncoding.DecodeString(strings.ToUpper(xt))
		default:
			return ih, errors.New("info hash must be 32 or 40 characters")
		}
	case strings.HasPrefix(xt, "urn:btmh:"):
		var mh multihash.Multihash
		mh, err = multihash.FromHexString(xt[9:])
		if err != nil {
			return ih, err
		}
		var dh *multihash.DecodedMultihash
		dh, err = multihash.Decode(mh)
		if err != nil {
			return ih, err
		}
		if dh.Code != multihash.SHA1 {
			return ih, errors.New("multihash is not sha1")
		}
		b = dh.Digest
	default:
		return ih, errors.New(`invalid xt param: must start with "urn:btih:" or "urn:btmh:"`)
	}
	if err != nil {
		return ih, err
	}
	if len(b) != len(ih) {
		return ih, errors.New("invalid info hash length")
	}
	copy(ih[:], b)
	return ih, nil
}

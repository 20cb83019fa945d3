package store

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Status of a torrent.
type Status int

// Torrent statuses. Completed and Error are terminal.
const (
	Queued Status = iota
	Downloading
	Paused
	Completed
	Error
)

var statusStrings = map[Status]string{
	Queued:      "queued",
	Downloading: "downloading",
	Paused:      "paused",
	Completed:   "completed",
	Error:       "error",
}

// Statuses lists all statuses in order.
var Statuses = []Status{Queued, Downloading, Paused, Completed, Error}

func (s Status) String() string {
	str, ok := statusStrings[s]
	if !ok {
		return strconv.FormatInt(int64(s), 10)
	}
	return str
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	str := strings.ToLower(string(b))
	for k, v := range statusStrings {
		if v == str {
			*s = k
			return nil
		}
	}
	return &InvalidStatusError{Value: string(b)}
}

// Terminal returns true for statuses that cannot be left.
func (s Status) Terminal() bool {
	return s == Completed || s == Error
}

// InvalidStatusError is returned when a status string cannot be parsed.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return "invalid status: " + strconv.Quote(e.Value)
}

// InfoHash is the SHA-1 hash of a torrent's info dict.
type InfoHash [20]byte

// String encodes info hash in hex as 40 characters.
func (h InfoHash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h InfoHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *InfoHash) UnmarshalText(b []byte) error {
	if len(b) != 40 {
		return hex.ErrLength
	}
	_, err := hex.Decode(h[:], b)
	return err
}

// Record is the authoritative state of a single torrent.
// Limits and rates are in bytes per second. A zero limit means unlimited.
type Record struct {
	ID       string   `json:"id"`
	Seq      uint64   `json:"seq"`
	Version  uint64   `json:"version"`
	Name     string   `json:"name"`
	InfoHash InfoHash `json:"info_hash"`
	Size     int64    `json:"size"`

	PieceLength uint32   `json:"piece_length"`
	NumPieces   uint32   `json:"num_pieces"`
	Trackers    []string `json:"trackers,omitempty"`
	Private     bool     `json:"private,omitempty"`

	Status   Status  `json:"status"`
	Error    string  `json:"error,omitempty"`
	Progress float64 `json:"progress"`

	DownloadLimit int64 `json:"download_limit"`
	UploadLimit   int64 `json:"upload_limit"`
	DownloadRate  int64 `json:"download_rate"`
	UploadRate    int64 `json:"upload_rate"`

	BytesDownloaded int64 `json:"bytes_downloaded"`
	BytesUploaded   int64 `json:"bytes_uploaded"`

	StopAfterDownload bool      `json:"stop_after_download,omitempty"`
	AddedAt           time.Time `json:"added_at"`
	CompletedAt       time.Time `json:"completed_at"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r.Trackers != nil {
		r.Trackers = append([]string(nil), r.Trackers...)
	}
	return r
}

// BytesLeft returns the number of bytes that still need to be downloaded.
func (r *Record) BytesLeft() int64 {
	return r.Size - r.BytesDownloaded
}

// UpdateProgress recalculates Progress from downloaded bytes.
// Progress is never decreased.
func (r *Record) UpdateProgress() {
	p := 1.0
	if r.Size > 0 {
		p = float64(r.BytesDownloaded) / float64(r.Size)
	}
	if p > 1 {
		p = 1
	}
	if p > r.Progress {
		r.Progress = p
	}
}

// Seeding returns true if a completed torrent keeps uploading.
func (r *Record) Seeding() bool {
	return r.Status == Completed && !r.StopAfterDownload
}

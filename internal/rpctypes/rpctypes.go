// Package rpctypes contains the types exchanged over the HTTP, WebSocket and JSON-RPC APIs.
package rpctypes

// Torrent is the summary of a torrent. Limits and rates are in bytes/s, zero limit means unlimited.
type Torrent struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	InfoHash           string   `json:"info_hash"`
	Size               int64    `json:"size"`
	Status             string   `json:"status"`
	Error              *string  `json:"error,omitempty"`
	Progress           float64  `json:"progress"`
	DownloadSpeedLimit int64    `json:"download_speed_limit"`
	UploadSpeedLimit   int64    `json:"upload_speed_limit"`
	DownloadRate       int64    `json:"download_rate"`
	UploadRate         int64    `json:"upload_rate"`
	Downloaded         int64    `json:"downloaded"`
	Uploaded           int64    `json:"uploaded"`
	PieceLength        uint32   `json:"piece_length"`
	NumPieces          uint32   `json:"num_pieces"`
	Private            bool     `json:"private"`
	Trackers           []string `json:"trackers"`
	StopAfterDownload  bool     `json:"stop_after_download"`
	AddedAt            Time     `json:"added_at"`
	CompletedAt        *Time    `json:"completed_at"`
}

// Stats are the totals returned from /api/stats.
type Stats struct {
	TotalDownloads      int   `json:"total_downloads"`
	ActiveDownloads     int   `json:"active_downloads"`
	CompletedDownloads  int   `json:"completed_downloads"`
	QueuedDownloads     int   `json:"queued_downloads"`
	PausedDownloads     int   `json:"paused_downloads"`
	ErroredDownloads    int   `json:"errored_downloads"`
	Seeding             int   `json:"seeding"`
	TotalSize           int64 `json:"total_size"`
	TotalDownloaded     int64 `json:"total_downloaded"`
	TotalUploaded       int64 `json:"total_uploaded"`
	GlobalDownloadRate  int64 `json:"global_download_rate"`
	GlobalUploadRate    int64 `json:"global_upload_rate"`
	GlobalDownloadLimit int64 `json:"global_download_limit"`
	GlobalUploadLimit   int64 `json:"global_upload_limit"`
}

// SessionStats describe the running session.
type SessionStats struct {
	Uptime              int   `json:"uptime"`
	Torrents            int   `json:"torrents"`
	Subscribers         int   `json:"subscribers"`
	DroppedSubscribers  int64 `json:"dropped_subscribers"`
	Ticks               int64 `json:"ticks"`
	TickConflicts       int64 `json:"tick_conflicts"`
	TorrentErrors       int64 `json:"torrent_errors"`
	GlobalDownloadLimit int64 `json:"global_download_limit"`
	GlobalUploadLimit   int64 `json:"global_upload_limit"`
	SpeedDownload       int   `json:"speed_download"`
	SpeedUpload         int   `json:"speed_upload"`
}

// TorrentUpdate is the state of a torrent pushed to subscribers on every tick.
type TorrentUpdate struct {
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	DownloadRate int64   `json:"download_rate"`
	UploadRate   int64   `json:"upload_rate"`
	Downloaded   int64   `json:"downloaded"`
	Uploaded     int64   `json:"uploaded"`
}

// MessageTypeTorrentUpdate is the type of the periodic snapshot message.
const MessageTypeTorrentUpdate = "torrent_update"

// Message is pushed to WebSocket subscribers.
type Message struct {
	Type  string                   `json:"type"`
	Stats map[string]TorrentUpdate `json:"stats"`
}

// GlobalLimits in bytes/s. Zero means unlimited.
type GlobalLimits struct {
	DownloadLimit int64 `json:"download_limit"`
	UploadLimit   int64 `json:"upload_limit"`
}

// SpeedLimits is the body of a torrent update. A missing or null value means unlimited.
type SpeedLimits struct {
	DownloadSpeedLimit *int64 `json:"download_speed_limit"`
	UploadSpeedLimit   *int64 `json:"upload_speed_limit"`
}

// MessageResponse is returned from operations that have no other result.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is returned when a request fails.
type ErrorResponse struct {
	Error string `json:"error"`
}

type AddTorrentOptions struct {
	Stopped           bool
	StopAfterDownload bool
	DownloadLimit     int64
	UploadLimit       int64
}

type ListTorrentsRequest struct {
}

type ListTorrentsResponse struct {
	Torrents []Torrent
}

type AddTorrentRequest struct {
	Torrent string
	AddTorrentOptions
}

type AddTorrentResponse struct {
	Torrent Torrent
}

type AddURIRequest struct {
	URI string
	AddTorrentOptions
}

type AddURIResponse struct {
	Torrent Torrent
}

type GetTorrentRequest struct {
	ID string
}

type GetTorrentResponse struct {
	Torrent Torrent
}

type GetTorrentFileRequest struct {
	ID string
}

type GetTorrentFileResponse struct {
	Torrent string
}

type GetMagnetRequest struct {
	ID string
}

type GetMagnetResponse struct {
	Magnet string
}

type PauseTorrentRequest struct {
	ID string
}

type PauseTorrentResponse struct {
}

type ResumeTorrentRequest struct {
	ID string
}

type ResumeTorrentResponse struct {
}

type UpdateLimitsRequest struct {
	ID            string
	DownloadLimit int64
	UploadLimit   int64
}

type UpdateLimitsResponse struct {
}

type RemoveTorrentRequest struct {
	ID string
}

type RemoveTorrentResponse struct {
}

type GetStatsRequest struct {
}

type GetStatsResponse struct {
	Stats Stats
}

type GetSessionStatsRequest struct {
}

type GetSessionStatsResponse struct {
	Stats SessionStats
}

type GetGlobalLimitsRequest struct {
}

type GetGlobalLimitsResponse struct {
	Limits GlobalLimits
}

type SetGlobalLimitsRequest struct {
	Limits GlobalLimits
}

type SetGlobalLimitsResponse struct {
}

package torrent

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/seedbox/torrentd/internal/logger"
	"github.com/seedbox/torrentd/internal/rpctypes"
)

// Extra room for multipart headers and form fields of an upload.
const uploadOverhead = 1 << 20

type httpHandler struct {
	session  *Session
	upgrader *websocket.Upgrader
	log      logger.Logger
}

type addURIRequest struct {
	URI                string `json:"uri"`
	Stopped            bool   `json:"stopped"`
	StopAfterDownload  bool   `json:"stop_after_download"`
	DownloadSpeedLimit int64  `json:"download_speed_limit"`
	UploadSpeedLimit   int64  `json:"upload_speed_limit"`
}

type magnetResponse struct {
	Magnet string `json:"magnet"`
}

func (h *httpHandler) listTorrents(w http.ResponseWriter, r *http.Request) {
	encodeJSON(w, http.StatusOK, newRPCTorrents(h.session.ListTorrents()))
}

// uploadTorrent adds a torrent from the "file" field of a multipart form.
func (h *httpHandler) uploadTorrent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.session.config.MaxTorrentSize+uploadOverhead)
	if err := r.ParseMultipartForm(h.session.config.MaxTorrentSize + uploadOverhead); err != nil {
		h.error(w, newInputError(err))
		return
	}
	defer r.MultipartForm.RemoveAll() // nolint: errcheck
	f, _, err := r.FormFile("file")
	if err != nil {
		h.error(w, newInputError(fmt.Errorf("missing file: %w", err)))
		return
	}
	defer f.Close()

	opt := &AddTorrentOptions{
		Stopped:           r.FormValue("stopped") == "true",
		StopAfterDownload: r.FormValue("stop_after_download") == "true",
	}
	if opt.DownloadLimit, err = parseLimit(r.FormValue("download_speed_limit")); err != nil {
		h.error(w, err)
		return
	}
	if opt.UploadLimit, err = parseLimit(r.FormValue("upload_speed_limit")); err != nil {
		h.error(w, err)
		return
	}
	t, err := h.session.AddTorrent(f, opt)
	if err != nil {
		h.error(w, err)
		return
	}
	encodeJSON(w, http.StatusOK, newRPCTorrent(t))
}

// parseLimit parses a form value. Empty value means unlimited.
func parseLimit(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, newInputError(fmt.Errorf("invalid speed limit: %q", s))
	}
	return n, nil
}

func (h *httpHandler) addURI(w http.ResponseWriter, r *http.Request) {
	var req addURIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, newInputError(err))
		return
	}
	t, err := h.session.AddURI(req.URI, &AddTorrentOptions{
		Stopped:           req.Stopped,
		StopAfterDownload: req.StopAfterDownload,
		DownloadLimit:     req.DownloadSpeedLimit,
		UploadLimit:       req.UploadSpeedLimit,
	})
	if err != nil {
		h.error(w, err)
		return
	}
	encodeJSON(w, http.StatusOK, newRPCTorrent(t))
}

func (h *httpHandler) getTorrent(w http.ResponseWriter, r *http.Request) {
	t, err := h.session.GetTorrent(mux.Vars(r)["id"])
	if err != nil {
		h.error(w, err)
		return
	}
	encodeJSON(w, http.StatusOK, newRPCTorrent(t))
}

// updateLimits replaces both limits of a torrent. A missing or null limit means unlimited.
func (h *httpHandler) updateLimits(w http.ResponseWriter, r *http.Request) {
	var req rpctypes.SpeedLimits
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, newInputError(err))
		return
	}
	var down, up int64
	if req.DownloadSpeedLimit != nil {
		down = *req.DownloadSpeedLimit
	}
	if req.UploadSpeedLimit != nil {
		up = *req.UploadSpeedLimit
	}
	if err := h.session.UpdateLimits(mux.Vars(r)["id"], down, up); err != nil {
		h.error(w, err)
		return
	}
	encodeMessage(w, "speed limits updated")
}

func (h *httpHandler) removeTorrent(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RemoveTorrent(mux.Vars(r)["id"]); err != nil {
		h.error(w, err)
		return
	}
	encodeMessage(w, "torrent removed")
}

func (h *httpHandler) pauseTorrent(w http.ResponseWriter, r *http.Request) {
	if err := h.session.PauseTorrent(mux.Vars(r)["id"]); err != nil {
		h.error(w, err)
		return
	}
	encodeMessage(w, "torrent paused")
}

func (h *httpHandler) resumeTorrent(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ResumeTorrent(mux.Vars(r)["id"]); err != nil {
		h.error(w, err)
		return
	}
	encodeMessage(w, "torrent resumed")
}

func (h *httpHandler) getMagnet(w http.ResponseWriter, r *http.Request) {
	m, err := h.session.Magnet(mux.Vars(r)["id"])
	if err != nil {
		h.error(w, err)
		return
	}
	encodeJSON(w, http.StatusOK, magnetResponse{Magnet: m})
}

func (h *httpHandler) getTorrentFile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b, err := h.session.TorrentFile(id)
	if err != nil {
		h.error(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-bittorrent")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.torrent"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *httpHandler) getStats(w http.ResponseWriter, r *http.Request) {
	encodeJSON(w, http.StatusOK, h.session.rpcStats())
}

func (h *httpHandler) getSessionStats(w http.ResponseWriter, r *http.Request) {
	encodeJSON(w, http.StatusOK, newRPCSessionStats(h.session.Stats()))
}

func (h *httpHandler) getGlobalLimits(w http.ResponseWriter, r *http.Request) {
	down, up := h.session.GlobalLimits()
	encodeJSON(w, http.StatusOK, rpctypes.GlobalLimits{DownloadLimit: down, UploadLimit: up})
}

func (h *httpHandler) setGlobalLimits(w http.ResponseWriter, r *http.Request) {
	var req rpctypes.GlobalLimits
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, newInputError(err))
		return
	}
	if err := h.session.SetGlobalLimits(req.DownloadLimit, req.UploadLimit); err != nil {
		h.error(w, err)
		return
	}
	encodeMessage(w, "global limits updated")
}

func (h *httpHandler) notFound(w http.ResponseWriter, r *http.Request) {
	encodeError(w, http.StatusNotFound, errors.New("not found"))
}

func (h *httpHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	encodeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// error writes err with the matching status code. Unexpected errors are logged.
func (h *httpHandler) error(w http.ResponseWriter, err error) {
	code := httpStatus(err)
	if code == http.StatusInternalServerError {
		h.log.Errorln("request failed:", err.Error())
	}
	encodeError(w, code, err)
}

func httpStatus(err error) int {
	var e *InputError
	switch {
	case errors.As(err, &e), errors.Is(err, ErrLimitExceeded):
		return http.StatusBadRequest
	case errors.Is(err, ErrTorrentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func encodeMessage(w http.ResponseWriter, msg string) {
	encodeJSON(w, http.StatusOK, rpctypes.MessageResponse{Message: msg})
}

func encodeError(w http.ResponseWriter, code int, err error) {
	encodeJSON(w, code, rpctypes.ErrorResponse{Error: err.Error()})
}

func encodeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

package torrent

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/powerman/rpc-codec/jsonrpc2"
	"github.com/seedbox/torrentd/internal/rpctypes"
)

// JSON-RPC error codes.
const (
	codeTorrentNotFound = 1
	codeInput           = 2
	codeInvalidState    = 3
	codeLimitExceeded   = 4
)

type rpcHandler struct {
	session *Session
}

// rpcError converts errors of this package to JSON-RPC errors with application codes.
func rpcError(err error) error {
	var e *InputError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTorrentNotFound):
		return jsonrpc2.NewError(codeTorrentNotFound, err.Error())
	case errors.As(err, &e):
		return jsonrpc2.NewError(codeInput, e.Error())
	case errors.Is(err, ErrInvalidState):
		return jsonrpc2.NewError(codeInvalidState, err.Error())
	case errors.Is(err, ErrLimitExceeded):
		return jsonrpc2.NewError(codeLimitExceeded, err.Error())
	default:
		return err
	}
}

func (h *rpcHandler) Version(args struct{}, reply *string) error {
	*reply = Version
	return nil
}

func (h *rpcHandler) ListTorrents(args *rpctypes.ListTorrentsRequest, reply *rpctypes.ListTorrentsResponse) error {
	reply.Torrents = newRPCTorrents(h.session.ListTorrents())
	return nil
}

func (h *rpcHandler) AddTorrent(args *rpctypes.AddTorrentRequest, reply *rpctypes.AddTorrentResponse) error {
	r := base64.NewDecoder(base64.StdEncoding, strings.NewReader(args.Torrent))
	t, err := h.session.AddTorrent(r, newAddTorrentOptions(args.AddTorrentOptions))
	var ce base64.CorruptInputError
	if errors.As(err, &ce) {
		return jsonrpc2.NewError(codeInput, err.Error())
	}
	if err != nil {
		return rpcError(err)
	}
	reply.Torrent = newRPCTorrent(t)
	return nil
}

func (h *rpcHandler) AddURI(args *rpctypes.AddURIRequest, reply *rpctypes.AddURIResponse) error {
	t, err := h.session.AddURI(args.URI, newAddTorrentOptions(args.AddTorrentOptions))
	if err != nil {
		return rpcError(err)
	}
	reply.Torrent = newRPCTorrent(t)
	return nil
}

func (h *rpcHandler) GetTorrent(args *rpctypes.GetTorrentRequest, reply *rpctypes.GetTorrentResponse) error {
	t, err := h.session.GetTorrent(args.ID)
	if err != nil {
		return rpcError(err)
	}
	reply.Torrent = newRPCTorrent(t)
	return nil
}

func (h *rpcHandler) GetTorrentFile(args *rpctypes.GetTorrentFileRequest, reply *rpctypes.GetTorrentFileResponse) error {
	b, err := h.session.TorrentFile(args.ID)
	if err != nil {
		return rpcError(err)
	}
	reply.Torrent = base64.StdEncoding.EncodeToString(b)
	return nil
}

func (h *rpcHandler) GetMagnet(args *rpctypes.GetMagnetRequest, reply *rpctypes.GetMagnetResponse) error {
	m, err := h.session.Magnet(args.ID)
	if err != nil {
		return rpcError(err)
	}
	reply.Magnet = m
	return nil
}

func (h *rpcHandler) PauseTorrent(args *rpctypes.PauseTorrentRequest, reply *rpctypes.PauseTorrentResponse) error {
	return rpcError(h.session.PauseTorrent(args.ID))
}

func (h *rpcHandler) ResumeTorrent(args *rpctypes.ResumeTorrentRequest, reply *rpctypes.ResumeTorrentResponse) error {
	return rpcError(h.session.ResumeTorrent(args.ID))
}

func (h *rpcHandler) UpdateLimits(args *rpctypes.UpdateLimitsRequest, reply *rpctypes.UpdateLimitsResponse) error {
	return rpcError(h.session.UpdateLimits(args.ID, args.DownloadLimit, args.UploadLimit))
}

func (h *rpcHandler) RemoveTorrent(args *rpctypes.RemoveTorrentRequest, reply *rpctypes.RemoveTorrentResponse) error {
	return rpcError(h.session.RemoveTorrent(args.ID))
}

func (h *rpcHandler) GetStats(args *rpctypes.GetStatsRequest, reply *rpctypes.GetStatsResponse) error {
	reply.Stats = h.session.rpcStats()
	return nil
}

func (h *rpcHandler) GetSessionStats(args *rpctypes.GetSessionStatsRequest, reply *rpctypes.GetSessionStatsResponse) error {
	reply.Stats = newRPCSessionStats(h.session.Stats())
	return nil
}

func (h *rpcHandler) GetGlobalLimits(args *rpctypes.GetGlobalLimitsRequest, reply *rpctypes.GetGlobalLimitsResponse) error {
	down, up := h.session.GlobalLimits()
	reply.Limits = rpctypes.GlobalLimits{DownloadLimit: down, UploadLimit: up}
	return nil
}

func (h *rpcHandler) SetGlobalLimits(args *rpctypes.SetGlobalLimitsRequest, reply *rpctypes.SetGlobalLimitsResponse) error {
	return rpcError(h.session.SetGlobalLimits(args.Limits.DownloadLimit, args.Limits.UploadLimit))
}

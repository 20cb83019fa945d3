package torrent

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/rpc"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/powerman/rpc-codec/jsonrpc2"
	"github.com/rcrowley/go-metrics"
	"github.com/seedbox/torrentd/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Server serves the HTTP API of a Session.
type Server struct {
	session    *Session
	httpServer http.Server
	log        logger.Logger
}

// NewServer returns a Server listening on Config.Host and Config.Port of the session.
func NewServer(s *Session) *Server {
	return &Server{
		session: s,
		httpServer: http.Server{
			Handler: s.HTTPHandler(),
		},
		log: logger.New("http server"),
	}
}

// Run serves HTTP requests until ctx is cancelled.
// In-flight requests are given Config.ShutdownTimeout to finish.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.session.config.Host, strconv.Itoa(s.session.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Infoln("HTTP server is listening on", listener.Addr().String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.session.config.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		err := s.httpServer.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	return g.Wait()
}

// HTTPHandler returns the handler of the REST API, the WebSocket endpoint,
// the JSON-RPC endpoint and the metrics endpoint.
func (s *Session) HTTPHandler() http.Handler {
	h := &httpHandler{
		session: s,
		log:     logger.New("http"),
	}
	h.upgrader = &websocket.Upgrader{
		CheckOrigin: h.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, code int, err error) {
			encodeError(w, code, err)
		},
	}

	srv := rpc.NewServer()
	_ = srv.RegisterName("Session", &rpcHandler{session: s})

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Path("/torrents").Methods(http.MethodGet).HandlerFunc(h.listTorrents)
	api.Path("/torrents/upload").Methods(http.MethodPost).HandlerFunc(h.uploadTorrent)
	api.Path("/torrents/add-uri").Methods(http.MethodPost).HandlerFunc(h.addURI)
	api.Path("/torrents/{id}").Methods(http.MethodGet).HandlerFunc(h.getTorrent)
	api.Path("/torrents/{id}").Methods(http.MethodPut).HandlerFunc(h.updateLimits)
	api.Path("/torrents/{id}").Methods(http.MethodDelete).HandlerFunc(h.removeTorrent)
	api.Path("/torrents/{id}/pause").Methods(http.MethodPost).HandlerFunc(h.pauseTorrent)
	api.Path("/torrents/{id}/resume").Methods(http.MethodPost).HandlerFunc(h.resumeTorrent)
	api.Path("/torrents/{id}/magnet").Methods(http.MethodGet).HandlerFunc(h.getMagnet)
	api.Path("/torrents/{id}/file").Methods(http.MethodGet).HandlerFunc(h.getTorrentFile)
	api.Path("/stats").Methods(http.MethodGet).HandlerFunc(h.getStats)
	api.Path("/session/stats").Methods(http.MethodGet).HandlerFunc(h.getSessionStats)
	api.Path("/settings/global-limits").Methods(http.MethodGet).HandlerFunc(h.getGlobalLimits)
	api.Path("/settings/global-limits").Methods(http.MethodPost).HandlerFunc(h.setGlobalLimits)
	api.Path("/ws").Methods(http.MethodGet).HandlerFunc(h.serveWS)
	api.NotFoundHandler = http.HandlerFunc(h.notFound)
	api.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	r.Path("/rpc").Methods(http.MethodPost).Handler(jsonrpc2.HTTPHandler(srv))
	r.Path("/debug/metrics").Methods(http.MethodGet).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		metrics.WriteJSONOnce(s.metrics.registry, w)
	})

	var handler http.Handler = r
	if len(s.config.CORSOrigins) > 0 {
		handler = handlers.CORS(
			handlers.AllowedOrigins(s.config.CORSOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(handler)
	}
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger.Printer{Logger: h.log}),
		handlers.PrintRecoveryStack(true),
	)(handler)
}

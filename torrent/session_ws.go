package torrent

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var errSessionClosing = errors.New("session is closing")

// serveWS pushes the state of all torrents to the client on connect and on every tick.
// Messages from the client are discarded.
func (h *httpHandler) serveWS(w http.ResponseWriter, r *http.Request) {
	if !h.session.trackConn() {
		encodeError(w, http.StatusServiceUnavailable, errSessionClosing)
		return
	}
	defer h.session.wsConns.Done()

	sub, err := h.session.Subscribe()
	if err != nil {
		encodeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer sub.Unsubscribe()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// err is handled by h.upgrader.Error, which calls encodeError
		return
	}
	h.log.Debugln("websocket client connected:", r.RemoteAddr)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()
	defer func() {
		ws.Close()
		<-readDone
		h.log.Debugln("websocket client disconnected:", r.RemoteAddr)
	}()

	if err = h.writeWS(ws, h.session.snapshot()); err != nil {
		return
	}
	for {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(wsWriteTimeout))
				return
			}
			if err = h.writeWS(ws, msg); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}

func (h *httpHandler) writeWS(ws *websocket.Conn, v interface{}) error {
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	err := ws.WriteJSON(v)
	if err != nil {
		h.log.Debugln("cannot write to websocket:", err.Error())
	}
	return err
}

// checkOrigin accepts configured CORS origins in addition to same origin requests.
func (h *httpHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.session.config.CORSOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

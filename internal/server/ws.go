package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/signassess/internal/app"
	"github.com/ayusman/signassess/internal/logging"
)

// liveInterval is how often the live output is pushed to clients.
const liveInterval = 66 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// SnapshotSource provides the live assessment output.
type SnapshotSource interface {
	Snapshot() app.Output
}

// LiveHandler pushes the live output (recognized sign, progress, hands and
// quiz state) to WebSocket clients.
type LiveHandler struct {
	source SnapshotSource
	log    logrus.FieldLogger
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(source SnapshotSource, log logrus.FieldLogger) *LiveHandler {
	if log == nil {
		log = logging.Discard()
	}
	return &LiveHandler{source: source, log: log}
}

// ServeHTTP upgrades the connection and writes a JSON message whenever the
// live output changes, until the client goes away.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade error")
		return
	}
	defer conn.Close()

	// Reading detects the client closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(liveInterval)
	defer ticker.Stop()

	var last time.Time
	first := true
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		out := h.source.Snapshot()
		if !first && out.Timestamp.Equal(last) {
			continue
		}
		first = false
		last = out.Timestamp

		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteJSON(out); err != nil {
			h.log.WithError(err).Debug("websocket write failed")
			return
		}
	}
}

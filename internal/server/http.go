package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cloudia/cloudia/internal/logging"
	"github.com/cloudia/cloudia/internal/version"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// Status is the body served on HealthPath.
type Status struct {
	Version string `json:"version"`
	Clients int    `json:"clients"`
	Records uint64 `json:"records"`
	Uptime  string `json:"uptime"`
}

// Handler returns the HTTP handler serving the feed and status endpoints.
func (f *Feed) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(FeedPath, f.handleFeed)
	mux.HandleFunc(HealthPath, f.handleHealth)
	return mux
}

func (f *Feed) handleFeed(w http.ResponseWriter, r *http.Request) {
	LogHTTPRequestDetails(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		logging.Warn("Invalid WebSocket upgrade request",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := newClient(conn, f.config.SendBuffer)
	logging.LogConnection(c.remote, "feed_client_connected")
	f.addClient(c)

	go c.writeLoop()
	c.readLoop()

	f.removeClient(c)
	logging.LogConnection(c.remote, "feed_client_closed")
}

func (f *Feed) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := Status{
		Version: version.Version,
		Clients: f.GetActiveConnections(),
	}
	f.mu.RLock()
	st.Records = f.records
	if !f.started.IsZero() {
		st.Uptime = time.Since(f.started).Truncate(time.Second).String()
	}
	f.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// LogHTTPRequestDetails logs the upgrade request at debug level
func LogHTTPRequestDetails(req *http.Request) {
	logging.Debug("WebSocket upgrade request details",
		zap.String("remote_addr", req.RemoteAddr),
		zap.String("host", req.Host),
		zap.String("path", req.URL.Path),
		zap.String("origin", req.Header.Get("Origin")),
		zap.String("sec_websocket_version", req.Header.Get("Sec-WebSocket-Version")),
		zap.String("user_agent", req.Header.Get("User-Agent")),
	)
}

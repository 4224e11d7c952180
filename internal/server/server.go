package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cloudia/cloudia/internal/logging"
	"github.com/cloudia/cloudia/internal/sink"
	"go.uber.org/zap"
)

// FeedPath is the websocket endpoint.
const FeedPath = "/feed"

// HealthPath reports feed status as JSON.
const HealthPath = "/healthz"

const (
	shutdownTimeout = 5 * time.Second
	defaultHistory  = 16
)

// Config holds the feed server configuration
type Config struct {
	Addr       string // Listen address, e.g. ":8090"
	CertPath   string // Optional: serve wss:// with this certificate
	KeyPath    string
	SendBuffer int // Messages queued per client; 0 picks a default
	History    int // Recent records replayed to new clients; 0 picks a default, <0 disables
}

// Feed streams decoded records to websocket clients. It implements
// sink.Sink so the bridge can write to it alongside InfluxDB.
type Feed struct {
	config    Config
	tlsConfig *tls.Config
	listener  net.Listener
	http      *http.Server

	mu      sync.RWMutex
	clients map[*client]struct{}
	history [][]byte
	records uint64
	started time.Time
}

var _ sink.Sink = (*Feed)(nil)

// New creates a Feed. Nothing listens until Listen or Run.
func New(config Config) (*Feed, error) {
	f := &Feed{
		config:  config,
		clients: make(map[*client]struct{}),
	}
	if f.config.History == 0 {
		f.config.History = defaultHistory
	}

	if config.CertPath != "" {
		tlsConfig, err := NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		f.tlsConfig = tlsConfig
	}

	f.http = &http.Server{
		Handler:           f.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return f, nil
}

// Listen binds the listen address. It is split from Run so callers can
// learn the bound port before serving.
func (f *Feed) Listen() (net.Addr, error) {
	ln, err := net.Listen("tcp", f.config.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", f.config.Addr, err)
	}
	if f.tlsConfig != nil {
		ln = tls.NewListener(ln, f.tlsConfig)
	}
	f.listener = ln
	return ln.Addr(), nil
}

// Run serves the feed until ctx is done, then shuts down gracefully.
func (f *Feed) Run(ctx context.Context) error {
	if f.listener == nil {
		if _, err := f.Listen(); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.started = time.Now()
	f.mu.Unlock()

	logging.Info("Starting live feed",
		zap.String("addr", f.listener.Addr().String()),
		zap.String("path", FeedPath),
		zap.Any("tls_info", GetTLSInfo(f.tlsConfig)),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- f.http.Serve(f.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return f.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Write broadcasts rec to every connected client. Slow clients miss
// messages instead of blocking the caller.
func (f *Feed) Write(_ context.Context, rec sink.Record) error {
	msg, err := json.Marshal(NewFeedRecord(rec))
	if err != nil {
		return fmt.Errorf("failed to encode feed record: %w", err)
	}

	f.mu.Lock()
	f.records++
	if f.config.History > 0 {
		f.history = append(f.history, msg)
		if len(f.history) > f.config.History {
			f.history = f.history[len(f.history)-f.config.History:]
		}
	}
	clients := make([]*client, 0, len(f.clients))
	for c := range f.clients {
		clients = append(clients, c)
	}
	f.mu.Unlock()

	for _, c := range clients {
		if !c.trySend(msg) {
			logging.Debug("Feed client too slow, message dropped",
				zap.String("remote_addr", c.remote),
			)
		}
	}
	return nil
}

func (f *Feed) addClient(c *client) {
	f.mu.Lock()
	f.clients[c] = struct{}{}
	backlog := append([][]byte(nil), f.history...)
	f.mu.Unlock()

	for _, msg := range backlog {
		c.trySend(msg)
	}
}

func (f *Feed) removeClient(c *client) {
	f.mu.Lock()
	delete(f.clients, c)
	f.mu.Unlock()
	c.close()
}

// Shutdown gracefully shuts down the server
func (f *Feed) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down live feed...")

	// Hijacked websocket connections are not tracked by http.Server.
	f.mu.Lock()
	for c := range f.clients {
		logging.Info("Closing feed client", zap.String("remote_addr", c.remote))
		c.close()
		delete(f.clients, c)
	}
	f.mu.Unlock()

	if err := f.http.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		return f.http.Close()
	}
	return nil
}

// GetActiveConnections returns the number of connected feed clients
func (f *Feed) GetActiveConnections() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

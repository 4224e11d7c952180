package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudia/cloudia/internal/logging"
	"github.com/cloudia/cloudia/internal/version"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Dial connects to a feed and returns a channel of records. The channel
// is closed when the connection drops or ctx is done.
func Dial(ctx context.Context, url string) (<-chan FeedRecord, error) {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to feed %s: %w", url, err)
	}
	logging.LogConnection(url, "feed_connected")

	out := make(chan FeedRecord)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		case <-done:
		}
		_ = conn.Close()
	}()

	go func() {
		defer close(out)
		defer close(done)
		for {
			var rec FeedRecord
			if err := conn.ReadJSON(&rec); err != nil {
				if ctx.Err() == nil {
					logging.Info("Feed connection closed", zap.String("url", url), zap.Error(err))
				}
				return
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

package feed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/betfeed/oddsrouter/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second
)

// Publisher routes decoded odds changes downstream.
type Publisher interface {
	Publish(ctx context.Context, msg *domain.OddsChange, sportURN string, route domain.Route) error
}

// envelope is the upstream frame: the odds_change XML document wrapped in a
// JSON header carrying the routing sport.
type envelope struct {
	Type    string `json:"type"`
	Sport   string `json:"sport"`
	Payload string `json:"payload"`
}

// wsCommand is a control frame sent to the upstream after connecting.
type wsCommand struct {
	Type string `json:"type"`
	Feed string `json:"feed"`
}

// UpstreamFeed connects to the upstream provider's WebSocket, subscribes to
// the odds feed, and hands every decoded odds change to the publisher as a
// broadcast publication. It reconnects with exponential backoff and drops
// malformed frames without stalling the stream.
type UpstreamFeed struct {
	url         string
	token       string
	dialTimeout time.Duration
	maxBackoff  time.Duration
	publisher   Publisher
	logger      *slog.Logger

	dropped atomic.Int64
}

// NewUpstreamFeed creates a feed reading from url. token, when set, is sent
// as a bearer credential on the dial request.
func NewUpstreamFeed(url, token string, dialTimeout, maxBackoff time.Duration, publisher Publisher, logger *slog.Logger) *UpstreamFeed {
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	if maxBackoff < reconnectDelay {
		maxBackoff = reconnectDelay
	}
	return &UpstreamFeed{
		url:         url,
		token:       token,
		dialTimeout: dialTimeout,
		maxBackoff:  maxBackoff,
		publisher:   publisher,
		logger:      logger.With(slog.String("component", "upstream_feed")),
	}
}

// Dropped returns the number of frames discarded as malformed.
func (f *UpstreamFeed) Dropped() int64 {
	return f.dropped.Load()
}

// Run connects and consumes frames until ctx is cancelled. A dropped
// connection is re-dialed with exponential backoff; the delay resets once a
// session gets through its subscribe.
func (f *UpstreamFeed) Run(ctx context.Context) error {
	delay := reconnectDelay

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		established, err := f.runConnection(ctx)
		if ctx.Err() != nil {
			f.logger.Info("upstream feed stopped")
			return ctx.Err()
		}
		if established {
			delay = reconnectDelay
		}

		f.logger.Warn("upstream disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", delay),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > f.maxBackoff {
			delay = f.maxBackoff
		}
	}
}

// runConnection dials, subscribes, and reads frames until the connection
// drops or ctx is cancelled. established reports whether the session got far
// enough to subscribe.
func (f *UpstreamFeed) runConnection(ctx context.Context) (established bool, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: f.dialTimeout}

	var header http.Header
	if f.token != "" {
		header = http.Header{}
		header.Set("Authorization", "Bearer "+f.token)
	}

	conn, _, err := dialer.DialContext(ctx, f.url, header)
	if err != nil {
		return false, fmt.Errorf("feed: connect: %w", err)
	}
	defer conn.Close()

	// Unblock the blocked read when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go f.pingLoop(ctx, conn)

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(wsCommand{Type: "subscribe", Feed: "odds_change"}); err != nil {
		return false, fmt.Errorf("feed: subscribe: %w", err)
	}
	f.logger.Info("upstream subscribed", slog.String("url", f.url))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("feed: read: %w", err)
		}
		f.handleFrame(ctx, raw)
	}
}

// pingLoop keeps the connection alive until ctx is cancelled or a write
// fails. The reader never writes, so the ping loop is the sole writer after
// the subscribe.
func (f *UpstreamFeed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame decodes one upstream frame and publishes it on the broadcast
// route. Frames that fail to decode are counted and dropped; publish
// failures are logged and the stream moves on.
func (f *UpstreamFeed) handleFrame(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		f.logger.Warn("dropping malformed frame",
			slog.String("error", err.Error()),
			slog.Int64("dropped_total", f.dropped.Add(1)),
		)
		return
	}
	if env.Type != "odds_change" {
		return
	}

	var msg domain.OddsChange
	if err := xml.Unmarshal([]byte(env.Payload), &msg); err != nil {
		f.logger.Warn("dropping undecodable odds change",
			slog.String("sport", env.Sport),
			slog.String("error", err.Error()),
			slog.Int64("dropped_total", f.dropped.Add(1)),
		)
		return
	}

	if err := f.publisher.Publish(ctx, &msg, env.Sport, domain.BroadcastRoute()); err != nil {
		f.logger.Error("publish failed",
			slog.String("event_id", msg.EventID),
			slog.String("sport", env.Sport),
			slog.String("error", err.Error()),
		)
	}
}

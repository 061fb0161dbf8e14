package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"miner-hosting/internal/api"
	"miner-hosting/internal/auth"
	"miner-hosting/internal/observability"
)

// StreamConfig configures the snapshot push stream.
type StreamConfig struct {
	// Interval between snapshots.
	Interval time.Duration
	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration
	// PongTimeout is how long a silent client is kept.
	PongTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Interval:     30 * time.Second,
		WriteTimeout: 10 * time.Second,
		PongTimeout:  90 * time.Second,
	}
}

// StreamHandler serves GET /dashboard/stream, pushing a fresh snapshot envelope
// to an authenticated admin every interval until the client disconnects.
type StreamHandler struct {
	*Handler
	config   StreamConfig
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a stream handler sharing h's authentication and builder.
func NewStreamHandler(h *Handler, config StreamConfig) *StreamHandler {
	defaults := DefaultStreamConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.PongTimeout <= 0 {
		config.PongTimeout = defaults.PongTimeout
	}
	return &StreamHandler{
		Handler: h,
		config:  config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
	}
}

// ServeHTTP implements http.Handler.
func (s *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, token, err := s.authorize(r)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	observability.StreamClientConnected(1)
	defer observability.StreamClientConnected(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The read loop only drains control frames and notices disconnects.
	conn.SetReadDeadline(time.Now().Add(s.config.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.PongTimeout))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if err := s.push(ctx, conn, caller, token); err != nil {
			s.logger.Debug("stream closed", zap.Int64("user_id", caller.UserID), zap.Error(err))
			return
		}

		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.config.WriteTimeout))
			return
		case <-ticker.C:
		}
	}
}

// push builds one snapshot and writes it as an envelope, followed by a ping.
func (s *StreamHandler) push(ctx context.Context, conn *websocket.Conn, caller *auth.Caller, token string) error {
	var env api.Envelope
	snap, err := s.builder.Build(ctx, caller, token)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error("dashboard build failed", zap.Int64("user_id", caller.UserID), zap.Error(err))
		env = api.Envelope{Success: false, Error: "dashboard unavailable"}
	} else {
		ts := s.now().UTC()
		env = api.Envelope{Success: true, Data: snap, Timestamp: &ts}
	}

	deadline := time.Now().Add(s.config.WriteTimeout)
	conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(env); err != nil {
		return err
	}
	return conn.WriteControl(websocket.PingMessage, nil, deadline)
}

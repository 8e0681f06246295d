package mavlink

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"dashcam/internal/config"
	"dashcam/internal/logging"
)

// Client maintains the websocket subscription to MAVLink2Rest. It reconnects
// forever with a fixed delay; the telemetry endpoint routinely restarts on
// the vehicle and the daemon must ride through that.
type Client struct {
	url            string
	reconnectDelay time.Duration
	logger         *slog.Logger
	detector       *Detector
	dialer         *websocket.Dialer
}

// NewClient builds a client for the configured heartbeat endpoint.
func NewClient(cfg *config.Config, logger *slog.Logger, detector *Detector) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	delay := time.Duration(cfg.MAVLink.ReconnectDelaySeconds) * time.Second
	if delay <= 0 {
		delay = time.Second
	}
	return &Client{
		url:            cfg.MAVLink.URL,
		reconnectDelay: delay,
		logger:         logging.NewComponentLogger(logger, "mavlink"),
		detector:       detector,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Run connects and consumes heartbeats until ctx is canceled. It only
// returns the context error; connection failures are logged and retried.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("telemetry connection lost",
				logging.String("url", c.url),
				logging.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.logger.Info("connected to telemetry stream", logging.String("url", c.url))

	// Unblock ReadMessage when the context is canceled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		hb, ok, err := ParseHeartbeat(data)
		if err != nil {
			c.logger.Debug("discarding malformed frame", logging.Error(err))
			continue
		}
		if !ok {
			continue
		}
		c.detector.Observe(hb)
	}
}

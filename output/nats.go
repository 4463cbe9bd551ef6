package output

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kbukum/tailpipe/component"
	"github.com/kbukum/tailpipe/errors"
	"github.com/kbukum/tailpipe/logger"
	"github.com/kbukum/tailpipe/resilience"
)

// Publisher is the part of *nats.Conn a NATS target needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSWriter publishes each written record, minus its trailing newline, as
// one message on a fixed subject. Sinks write one record per call.
type NATSWriter struct {
	pub     Publisher
	subject string
}

// NewNATSWriter returns a writer publishing to subject.
func NewNATSWriter(pub Publisher, subject string) *NATSWriter {
	return &NATSWriter{pub: pub, subject: subject}
}

func (w *NATSWriter) Write(p []byte) (int, error) {
	msg := bytes.TrimSuffix(p, []byte("\n"))
	if err := w.pub.Publish(w.subject, msg); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush flushes the connection's outbound buffer when the publisher supports
// it.
func (w *NATSWriter) Flush() error {
	if f, ok := w.pub.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// NATSConfig configures the NATS connection used by nats: targets.
type NATSConfig struct {
	URL           string        `yaml:"url" mapstructure:"url" validate:"omitempty,url"`
	Name          string        `yaml:"name" mapstructure:"name"`
	MaxReconnects int           `yaml:"max_reconnects" mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" mapstructure:"reconnect_wait" validate:"gte=0"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	DrainTimeout  time.Duration `yaml:"drain_timeout" mapstructure:"drain_timeout" validate:"gte=0"`
	// Retry governs publishes that fail while the connection recovers.
	Retry resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// ApplyDefaults fills unset fields.
func (c *NATSConfig) ApplyDefaults() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.Name == "" {
		c.Name = "tailpipe"
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = nats.DefaultMaxReconnect
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = nats.DefaultReconnectWait
	}
	if c.Timeout == 0 {
		c.Timeout = nats.DefaultTimeout
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = nats.DefaultDrainTimeout
	}
	if c.Retry.RetryIf == nil {
		c.Retry.RetryIf = transient
	}
	c.Retry.ApplyDefaults()
}

// transient reports publish errors that can clear while the client
// reconnects.
func transient(err error) bool {
	return stderrors.Is(err, nats.ErrReconnectBufExceeded) ||
		stderrors.Is(err, nats.ErrConnectionReconnecting) ||
		stderrors.Is(err, nats.ErrTimeout)
}

// NATSClient owns the NATS connection as a component.
type NATSClient struct {
	cfg  NATSConfig
	log  *logger.Logger
	mu   sync.RWMutex
	conn *nats.Conn
}

// NewNATSClient returns an unconnected client.
func NewNATSClient(cfg NATSConfig) *NATSClient {
	cfg.ApplyDefaults()
	return &NATSClient{cfg: cfg, log: logger.Get("nats")}
}

func (c *NATSClient) Name() string { return "nats" }

// Start connects to the server.
func (c *NATSClient) Start(ctx context.Context) error {
	conn, err := nats.Connect(c.cfg.URL, c.options()...)
	if err != nil {
		return errors.IOFailure("nats", err).WithDetail("url", c.cfg.URL)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.log.Info("connected", logger.Fields("url", conn.ConnectedUrl()))
	return nil
}

// Stop drains the connection so published messages are not lost.
func (c *NATSClient) Stop(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
		return fmt.Errorf("draining nats connection: %w", err)
	}
	return nil
}

func (c *NATSClient) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not connected"}
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	switch {
	case conn == nil:
	case conn.IsConnected():
		h.Status, h.Message = component.StatusHealthy, "connected"
	case conn.IsReconnecting():
		h.Status, h.Message = component.StatusDegraded, "reconnecting"
	}
	return h
}

func (c *NATSClient) Describe() component.Description {
	return component.Description{Name: "NATS", Type: "nats", Details: c.cfg.URL}
}

// Conn returns the live connection, or nil before Start.
func (c *NATSClient) Conn() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// Publish publishes on the live connection, retrying transient failures.
// It lets the client back an Opener before Start has run.
func (c *NATSClient) Publish(subject string, data []byte) error {
	conn := c.Conn()
	if conn == nil {
		return nats.ErrConnectionClosed
	}
	return resilience.RetryFunc(context.Background(), c.retry(), func() error {
		return conn.Publish(subject, data)
	})
}

func (c *NATSClient) retry() resilience.RetryConfig {
	cfg := c.cfg.Retry
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.log.Warn("publish failed, retrying", logger.Fields(
			"attempt", attempt,
			logger.FieldError, err.Error(),
			"backoff", backoff.String(),
		))
	}
	return cfg
}

// Flush flushes the live connection's outbound buffer.
func (c *NATSClient) Flush() error {
	conn := c.Conn()
	if conn == nil {
		return nats.ErrConnectionClosed
	}
	return conn.Flush()
}

func (c *NATSClient) options() []nats.Option {
	return []nats.Option{
		nats.Name(c.cfg.Name),
		nats.MaxReconnects(c.cfg.MaxReconnects),
		nats.ReconnectWait(c.cfg.ReconnectWait),
		nats.Timeout(c.cfg.Timeout),
		nats.DrainTimeout(c.cfg.DrainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.log.Warn("disconnected", logger.Fields(logger.FieldError, err.Error()))
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			c.log.Info("reconnected", logger.Fields("url", conn.ConnectedUrl()))
		}),
	}
}

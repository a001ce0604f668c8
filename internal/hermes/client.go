package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectCallsUploaded     = "callhour.calls.uploaded"
	SubjectAnalysisCompleted = "callhour.analysis.completed"
	SubjectRegistered        = "callhour.agent.registered"
)

// CallsUploaded is published after a call log replaced a session's table.
type CallsUploaded struct {
	SessionID string    `json:"session_id"`
	FileName  string    `json:"file_name"`
	Rows      int       `json:"rows"`
	Dropped   int       `json:"dropped"`
	Columns   []string  `json:"columns"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalysisCompleted is published after a recommendation was produced.
type AnalysisCompleted struct {
	AnalysisID    string    `json:"analysis_id"`
	SessionID     string    `json:"session_id"`
	Phone         string    `json:"phone"`
	Region        string    `json:"region"`
	Timezone      string    `json:"timezone"`
	Carrier       string    `json:"carrier"`
	Unanswered    []int     `json:"unanswered_hours"`
	LowEngagement []int     `json:"low_engagement_hours"`
	Successful    []int     `json:"successful_hours"`
	Timestamp     time.Time `json:"timestamp"`
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("callhour"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// Close flushes pending publishes before closing the connection.
func (c *Client) Close() {
	if err := c.conn.Flush(); err != nil {
		c.logger.Warn("nats flush failed", "error", err)
	}
	c.conn.Close()
}

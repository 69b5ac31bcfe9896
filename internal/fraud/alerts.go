package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const defaultAlertSubject = "fraud.alerts"

// NatsAlertPublisher pushes reject verdicts onto NATS so review tooling can
// react without polling the database.
type NatsAlertPublisher struct {
	conn    *nats.Conn
	subject string
}

var _ AlertPublisher = (*NatsAlertPublisher)(nil)

// NewNatsAlertPublisher connects to NATS at the given URL. An empty subject
// falls back to the default.
func NewNatsAlertPublisher(url, subject string) (*NatsAlertPublisher, error) {
	if subject == "" {
		subject = defaultAlertSubject
	}
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NatsAlertPublisher{conn: conn, subject: subject}, nil
}

// PublishHighRisk implements AlertPublisher
func (p *NatsAlertPublisher) PublishHighRisk(ctx context.Context, result *FraudAnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// Close drains in-flight messages and closes the connection
func (p *NatsAlertPublisher) Close() error {
	return p.conn.Drain()
}

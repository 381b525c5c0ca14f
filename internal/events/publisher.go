package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/technosupport/vms-analytics/internal/data"
)

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subj string, data []byte) error
}

type NATSPublisher struct {
	conn       Conn
	subject    string
	maxRetries int
	backoff    time.Duration
}

func NewNATSPublisher(conn Conn, subject string, maxRetries int) *NATSPublisher {
	return &NATSPublisher{
		conn:       conn,
		subject:    subject,
		maxRetries: maxRetries,
		backoff:    100 * time.Millisecond,
	}
}

// Connect dials NATS with reconnects enabled for the life of the process.
func Connect(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// Subject is per company so consumers can subscribe to a single tenant.
func (p *NATSPublisher) Subject(evt *data.TamperingEvent) string {
	return fmt.Sprintf("%s.%s.%s", p.subject, evt.CompanyID, evt.Status)
}

func (p *NATSPublisher) Publish(evt *data.TamperingEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	subj := p.Subject(evt)
	for i := 0; i <= p.maxRetries; i++ {
		err = p.conn.Publish(subj, payload)
		if err == nil {
			return nil
		}
		time.Sleep(time.Duration(i) * p.backoff)
	}

	return fmt.Errorf("publish failed after %d retries: %w", p.maxRetries, err)
}

package livereload

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
)

// Signal is what travels over NATS: the reload message plus the outputs
// that changed.
type Signal struct {
	Message
	Origin  string    `json:"origin"`
	Changed []string  `json:"changed"`
	At      time.Time `json:"at"`
}

// EncodeSignal builds the NATS payload for changed outputs.
func EncodeSignal(origin string, changed []string) ([]byte, error) {
	return json.Marshal(Signal{Message: NewMessage(changed), Origin: origin, Changed: changed, At: time.Now().UTC()})
}

// DecodeSignal parses a NATS payload.
func DecodeSignal(data []byte) (Signal, error) {
	var s Signal
	err := json.Unmarshal(data, &s)
	return s, err
}

// Publisher fans reload signals out to a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	origin  string
	subject string
	logger  *slog.Logger
}

// NewPublisher connects to url.
func NewPublisher(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("satsuma"))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to connect to NATS").
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS reload publisher connected", "url", url, "subject", subject)
	return &Publisher{conn: conn, origin: uuid.NewString(), subject: subject, logger: slog.Default()}, nil
}

// Notify publishes changed outputs.
func (p *Publisher) Notify(_ context.Context, changed []string) error {
	data, err := EncodeSignal(p.origin, changed)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "failed to publish reload").Build()
	}
	p.logger.Debug("Published reload", "subject", p.subject, "changed", len(changed))
	return nil
}

// Relay forwards signals other processes publish on subject into hub until
// the returned subscription is drained.
func (p *Publisher) Relay(hub *Hub) (*nats.Subscription, error) {
	return p.conn.Subscribe(p.subject, func(m *nats.Msg) {
		s, err := DecodeSignal(m.Data)
		if err != nil {
			p.logger.Warn("Ignoring malformed reload signal", "error", err)
			return
		}
		if s.Origin == p.origin {
			return
		}
		hub.Broadcast(s.Message)
	})
}

// Close drains and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}

// Package publish forwards thermal notifications onto a NATS subject so that
// calibration workers outside the process can react to them.
package publish

import (
	"encoding/json"
	"time"

	"codeberg.org/mutker/thermloop/internal/errors"
	"codeberg.org/mutker/thermloop/internal/logger"
	"codeberg.org/mutker/thermloop/internal/thermal"
	nats "github.com/nats-io/nats.go"
)

const (
	DefaultSubject = "thermloop.compensation"

	ErrConnect = errors.ErrorCode("publish_connect_failed")
	ErrPublish = errors.ErrorCode("publish_failed")
)

// Conn is the subset of *nats.Conn used here.
type Conn interface {
	Publish(subject string, data []byte) error
	Close()
}

// Message is the JSON payload published for every notification.
type Message struct {
	Temperature     float64   `json:"temperature"`
	CompensationOff bool      `json:"compensation_off"`
	Timestamp       time.Time `json:"timestamp"`
}

type Publisher struct {
	conn    Conn
	subject string
	log     logger.Logger
	now     func() time.Time
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string, log logger.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("thermloop"))
	if err != nil {
		return nil, errors.New().Wrap(ErrConnect, err)
	}
	log.Info().Str("url", url).Str("subject", subject).Msg("Connected to NATS")
	return New(nc, subject, log), nil
}

func New(conn Conn, subject string, log logger.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject, log: log, now: time.Now}
}

// Publish sends one notification.
func (p *Publisher) Publish(temperature float64) error {
	errFactory := errors.New()

	data, err := json.Marshal(Message{
		Temperature:     temperature,
		CompensationOff: thermal.IsCompensationOff(temperature),
		Timestamp:       p.now().UTC(),
	})
	if err != nil {
		return errFactory.Wrap(ErrPublish, err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return errFactory.Wrap(ErrPublish, err)
	}
	return nil
}

// Observe is a thermal.Callback; failures are logged.
func (p *Publisher) Observe(temperature float64) {
	if err := p.Publish(temperature); err != nil {
		p.log.Error().Err(err).Str("subject", p.subject).Msg("Failed to publish thermal notification")
	}
}

func (p *Publisher) Close() {
	p.conn.Close()
}

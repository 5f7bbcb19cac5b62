package collectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/hetulpatel/hedj/internal/logging"
	"github.com/hetulpatel/hedj/internal/metrics"
	"github.com/hetulpatel/hedj/internal/odds"
)

// MessageReader is the part of *kafka.Reader the topic provider needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Topic drains a Kafka topic of observation records. Fetch reads until no
// message arrives for IdleTimeout (or MaxMessages is hit); Ack commits the
// offsets of everything fetched so far.
//
// Messages stay buffered until Ack. A Fetch that fails, or whose rows the
// caller never appended, leaves them in the buffer and the next Fetch returns
// them again ahead of new messages, so an offset is only committed after its
// rows were handed out by a successful Fetch.
type Topic struct {
	Reader      MessageReader
	IdleTimeout time.Duration
	MaxMessages int
	Now         func() time.Time

	fetched []kafkago.Message
}

func NewTopic(reader MessageReader, idle time.Duration) *Topic {
	if idle <= 0 {
		idle = 5 * time.Second
	}
	return &Topic{Reader: reader, IdleTimeout: idle, Now: time.Now}
}

func (p *Topic) Name() string { return "kafka" }

func (p *Topic) Fetch(ctx context.Context, sports []string) ([]odds.Observation, error) {
	filter := newSportFilter(sports)
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	fetchedAt := now().UTC()

	out := make([]odds.Observation, 0)
	if len(p.fetched) > 0 {
		logging.Warnf("[kafka] re-reading %d uncommitted messages", len(p.fetched))
	}
	for _, msg := range p.fetched {
		out = append(out, p.decode(msg, fetchedAt, filter)...)
	}

	for p.MaxMessages <= 0 || len(p.fetched) < p.MaxMessages {
		fetchCtx, cancel := context.WithTimeout(ctx, p.IdleTimeout)
		msg, err := p.Reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return nil, fmt.Errorf("kafka fetch: %w", err)
		}
		p.fetched = append(p.fetched, msg)
		out = append(out, p.decode(msg, fetchedAt, filter)...)
	}
	logging.Debugf("[kafka] fetched %d messages, %d observations", len(p.fetched), len(out))
	return out, nil
}

func (p *Topic) decode(msg kafkago.Message, fetchedAt time.Time, filter sportFilter) []odds.Observation {
	rows, err := DecodeRecord(msg.Value, fetchedAt)
	if err != nil {
		metrics.RowsRejected.WithLabelValues("kafka", "decode").Inc()
		logging.Warnf("[kafka] skipping offset %d on partition %d: %v", msg.Offset, msg.Partition, err)
		return nil
	}
	return filter.apply(rows)
}

// Ack commits every fetched message, including ones that failed to decode.
func (p *Topic) Ack(ctx context.Context) error {
	if len(p.fetched) == 0 {
		return nil
	}
	if err := p.Reader.CommitMessages(ctx, p.fetched...); err != nil {
		return fmt.Errorf("kafka commit: %w", err)
	}
	p.fetched = nil
	return nil
}

func (p *Topic) Close() error {
	if p.Reader == nil {
		return nil
	}
	return p.Reader.Close()
}

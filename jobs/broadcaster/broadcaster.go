// Package broadcaster drains the outbox to Kafka. It is the durable
// half of event delivery: the order service stages events, this job
// publishes them and records the acknowledgement, so a crash between
// the two never loses an event.
package broadcaster

import (
	"context"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"freya/infra/outbox"
)

type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      zerolog.Logger
}

func New(
	ob *outbox.Outbox,
	brokers []string,
	topic string,
	interval time.Duration,
	log zerolog.Logger,
) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}, nil
}

// Run drains the outbox on a fixed interval until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info().Str("topic", b.topic).Msg("broadcaster started")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.drainOnce()
		}
	}
}

// drainOnce publishes every pending event. Publish failures are marked
// FAILED and picked up again on the next tick.
func (b *Broadcaster) drainOnce() {
	err := b.outbox.ScanPending(func(rec outbox.Record) error {
		if err := b.outbox.MarkSent(rec.Seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(rec.Seq, 10)),
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn().Err(err).Uint64("seq", rec.Seq).Msg("publish failed")
			return b.outbox.MarkFailed(rec.Seq)
		}

		return b.outbox.MarkAcked(rec.Seq)
	})
	if err != nil {
		b.log.Error().Err(err).Msg("outbox drain failed")
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}

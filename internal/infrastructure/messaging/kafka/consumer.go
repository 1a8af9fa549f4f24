package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/pkg/errors"
)

// ConsumerConfig holds configuration for the run consumer.
type ConsumerConfig struct {
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
	GroupID        string        `mapstructure:"group_id"`
	MinBytes       int           `mapstructure:"min_bytes"`
	MaxBytes       int           `mapstructure:"max_bytes"`
	CommitInterval time.Duration `mapstructure:"commit_interval"`
}

func (c *ConsumerConfig) applyDefaults() {
	if c.Topic == "" {
		c.Topic = TopicFitRunExecute
	}
	if c.GroupID == "" {
		c.GroupID = "forgeff-workers"
	}
	if c.MinBytes == 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes == 0 {
		c.MaxBytes = 1 << 20
	}
}

// readerInterface abstracts kafka.Reader for testing.
type readerInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one decoded run message. A returned error leaves the
// message uncommitted so another worker can retry it.
type Handler func(ctx context.Context, msg RunMessage) error

// Consumer reads run dispatch messages in a consumer group.
type Consumer struct {
	reader readerInterface
	log    logging.Logger
}

// NewConsumer creates a consumer against the configured brokers.
func NewConsumer(cfg ConsumerConfig, log logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.Newf(errors.CodeQueueError, "no kafka brokers configured")
	}
	cfg.applyDefaults()
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		CommitInterval: cfg.CommitInterval,
	})
	return newConsumerWith(reader, log), nil
}

func newConsumerWith(reader readerInterface, log logging.Logger) *Consumer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Consumer{reader: reader, log: log.Named("kafka_consumer")}
}

// Run fetches messages until the context is cancelled. Malformed messages
// are committed and dropped; handler failures are logged and left for
// redelivery.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		raw, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, errors.CodeQueueError, "fetch run message")
		}

		msg, err := DecodeRunMessage(raw.Value)
		if err != nil {
			c.log.Warn("dropping malformed run message",
				logging.Int("offset", int(raw.Offset)), logging.Err(err))
			if cerr := c.reader.CommitMessages(ctx, raw); cerr != nil {
				return errors.Wrap(cerr, errors.CodeQueueError, "commit malformed message")
			}
			continue
		}

		if err := handle(ctx, msg); err != nil {
			c.log.Error("run handler failed",
				logging.String("run_id", msg.RunID), logging.Err(err))
			continue
		}
		if err := c.reader.CommitMessages(ctx, raw); err != nil {
			return errors.Wrap(err, errors.CodeQueueError, "commit run message")
		}
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }

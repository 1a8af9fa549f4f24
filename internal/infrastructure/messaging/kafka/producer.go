package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/pkg/errors"
)

// ProducerConfig holds configuration for the run producer.
type ProducerConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

func (c *ProducerConfig) applyDefaults() {
	if c.Topic == "" {
		c.Topic = TopicFitRunExecute
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = 50 * time.Millisecond
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes fit run dispatch messages. It implements
// fitjob.Queue.
type Producer struct {
	writer WriterInterface
	log    logging.Logger
	closed atomic.Bool
	sent   atomic.Int64
	now    func() time.Time
}

// NewProducer creates a producer against the configured brokers.
func NewProducer(cfg ProducerConfig, log logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.Newf(errors.CodeQueueError, "no kafka brokers configured")
	}
	cfg.applyDefaults()
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxAttempts:  cfg.MaxRetries,
		RequiredAcks: kafka.RequireAll,
	}
	return newProducerWith(writer, log), nil
}

func newProducerWith(writer WriterInterface, log logging.Logger) *Producer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Producer{writer: writer, log: log.Named("kafka_producer"), now: time.Now}
}

// EnqueueRun publishes one run id, keyed by run id so retries of the same
// run stay ordered.
func (p *Producer) EnqueueRun(ctx context.Context, runID string) error {
	if p.closed.Load() {
		return errors.Newf(errors.CodeQueueError, "producer closed")
	}
	data, err := RunMessage{RunID: runID, RequestedAt: p.now().UTC()}.Encode()
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(runID),
		Value: data,
	})
	if err != nil {
		p.log.Error("publish run", logging.String("run_id", runID), logging.Err(err))
		return errors.Wrap(err, errors.CodeQueueError, "publish run message")
	}
	p.sent.Add(1)
	p.log.Debug("run enqueued", logging.String("run_id", runID))
	return nil
}

// Sent reports how many messages this producer has published.
func (p *Producer) Sent() int64 { return p.sent.Load() }

func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}

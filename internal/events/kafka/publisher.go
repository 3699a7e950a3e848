package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/funds-transfer-ledger/internal/interfaces"
)

const (
	breakerTimeout          = 30 * time.Second
	breakerFailureThreshold = 5
	writeTimeout            = 5 * time.Second
	maxAttempts             = 3

	// publishTimeout bounds one Publish call, retries included.
	publishTimeout = 3 * time.Second

	// Events are written one at a time; the writer must not wait for a batch to fill.
	batchTimeout = 10 * time.Millisecond
)

// ErrUnavailable is returned while the breaker is open and publishes are short-circuited.
var ErrUnavailable = errors.New("event publisher unavailable")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes JSON encoded events to Kafka. Consecutive write failures
// open a circuit breaker so a dead broker does not stall every transfer.
type Publisher struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewPublisher(brokers []string, logger *zap.Logger) *Publisher {
	return newPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		Compression:  kafka.Lz4,
		RequiredAcks: kafka.RequireAll,
		BatchSize:    1,
		BatchTimeout: batchTimeout,
		MaxAttempts:  maxAttempts,
		WriteTimeout: writeTimeout,
	}, logger)
}

func newPublisher(writer messageWriter, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Publisher{writer: writer, logger: logger}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "kafka-publisher",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return p
}

// Publish encodes event as JSON and writes it to topic. Messages with the same
// key land on the same partition. The write gives up after publishTimeout even
// when ctx carries no deadline.
func (p *Publisher) Publish(ctx context.Context, topic string, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: data,
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ interfaces.EventPublisher = (*Publisher)(nil)

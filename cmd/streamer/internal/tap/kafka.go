package tap

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-streamer/pkg/models"
)

// KafkaTap re-publishes transmitted rows as StockUpdate JSON, keyed by symbol
// so one replay stays on one partition in order.
// Each publish is bounded by timeout so an unreachable broker cannot stretch
// the pause between datagrams.
type KafkaTap struct {
	logger  *zap.Logger
	writer  KafkaWriter
	symbol  string
	timeout time.Duration
}

func NewKafkaTap(logger *zap.Logger, writer KafkaWriter, symbol string, timeout time.Duration) *KafkaTap {
	return &KafkaTap{logger: logger, writer: writer, symbol: symbol, timeout: timeout}
}

// NewKafkaWriter builds the writer used outside tests. Synchronous writes:
// the stream already paces itself, batching buys nothing. One attempt per
// message; a lost tap record is logged, never retried.
func NewKafkaWriter(brokers []string, topic string, timeout time.Duration) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  1,
		WriteTimeout: timeout,
	}
}

func (k *KafkaTap) Name() string { return "kafka" }

func (k *KafkaTap) Publish(ctx context.Context, row models.PriceRow, seq int64) error {
	payload, err := encodeUpdate(k.symbol, row, seq)
	if errors.Is(err, ErrUnconvertible) {
		k.logger.Warn("Skipping row for kafka", zap.Int64("seq", seq), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}

	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(k.symbol),
		Value: payload,
	})
}

func (k *KafkaTap) Close() error { return k.writer.Close() }

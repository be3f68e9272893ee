package tap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-streamer/cmd/streamer/internal/streamer"
)

var ErrTopicNotReady = errors.New("kafka topic not ready")

// TopicSetup asks the cluster controller for the tap topic, then polls until
// the topic reports partitions. A single partition keeps one replay in order.
type TopicSetup struct {
	logger *zap.Logger
	dialer BrokerDialer
	clock  streamer.Clock

	Polls        int
	PollInterval time.Duration
}

func NewTopicSetup(logger *zap.Logger, dialer BrokerDialer, clock streamer.Clock) *TopicSetup {
	return &TopicSetup{
		logger:       logger,
		dialer:       dialer,
		clock:        clock,
		Polls:        5,
		PollInterval: 200 * time.Millisecond,
	}
}

// Ensure returns nil once topic is visible on the cluster. An existing topic
// is not an error.
func (ts *TopicSetup) Ensure(ctx context.Context, brokers []string, topic string) error {
	conn, err := ts.dialAny(ctx, brokers)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := ts.create(ctx, conn, topic); err != nil {
		return err
	}
	return ts.await(ctx, conn, topic)
}

func (ts *TopicSetup) dialAny(ctx context.Context, brokers []string) (BrokerConn, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no brokers configured")
	}
	var errs []error
	for _, addr := range brokers {
		conn, err := ts.dialer.DialBroker(ctx, addr)
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("no broker reachable: %w", errors.Join(errs...))
}

func (ts *TopicSetup) create(ctx context.Context, conn BrokerConn, topic string) error {
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("lookup controller: %w", err)
	}

	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	cc, err := ts.dialer.DialBroker(ctx, addr)
	if err != nil {
		return err
	}
	defer cc.Close()

	err = cc.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	switch {
	case errors.Is(err, kafka.TopicAlreadyExists):
		ts.logger.Info("Topic already exists", zap.String("topic", topic))
	case err != nil:
		return fmt.Errorf("create topic %s: %w", topic, err)
	default:
		ts.logger.Info("Topic creation request sent", zap.String("topic", topic), zap.String("controller", addr))
	}
	return nil
}

func (ts *TopicSetup) await(ctx context.Context, conn BrokerConn, topic string) error {
	ts.logger.Info("Waiting for topic initialization...", zap.String("topic", topic))
	for i := 0; i < ts.Polls; i++ {
		if err := ts.clock.Sleep(ctx, ts.PollInterval); err != nil {
			return err
		}
		partitions, err := conn.ReadPartitions(topic)
		if err != nil {
			ts.logger.Debug("Partitions not readable yet", zap.Int("poll", i+1), zap.Error(err))
			continue
		}
		if n := countPartitions(partitions, topic); n > 0 {
			ts.logger.Info("Topic is ready!", zap.String("topic", topic), zap.Int("partitions", n))
			return nil
		}
	}
	return fmt.Errorf("%w: %s after %d polls", ErrTopicNotReady, topic, ts.Polls)
}

func countPartitions(partitions []kafka.Partition, topic string) int {
	n := 0
	for _, p := range partitions {
		if p.Topic == topic {
			n++
		}
	}
	return n
}

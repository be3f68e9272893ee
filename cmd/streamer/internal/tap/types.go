package tap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BrokerConn is the admin surface topic setup needs from one broker.
// *kafka.Conn satisfies it as is.
type BrokerConn interface {
	Controller() (kafka.Broker, error)
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

type BrokerDialer interface {
	DialBroker(ctx context.Context, addr string) (BrokerConn, error)
}

// RedisPublisher is the slice of the redis client the tap needs
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// KafkaDialer opens TCP connections to brokers with a bounded connect time.
type KafkaDialer struct {
	dialer *kafka.Dialer
}

func NewKafkaDialer(timeout time.Duration) *KafkaDialer {
	return &KafkaDialer{dialer: &kafka.Dialer{Timeout: timeout, DualStack: true}}
}

func (d *KafkaDialer) DialBroker(ctx context.Context, addr string) (BrokerConn, error) {
	conn, err := d.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial broker %s: %w", addr, err)
	}
	return conn, nil
}

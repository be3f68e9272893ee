package testutils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/stock-streamer/cmd/streamer/internal/tap"
	"github.com/shubham-shewale/stock-streamer/pkg/models"
)

type MockSender struct {
	Payloads   [][]byte
	Mu         sync.Mutex
	ShouldFail bool
	Closed     bool
}

func (m *MockSender) Send(ctx context.Context, payload []byte) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("network unreachable")
	}
	m.Payloads = append(m.Payloads, append([]byte(nil), payload...))
	return nil
}

func (m *MockSender) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

func (m *MockSender) Sent() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	out := make([]string, len(m.Payloads))
	for i, p := range m.Payloads {
		out[i] = string(p)
	}
	return out
}

// MockClock advances virtual time on Sleep. When CancelAfter > 0 it calls
// Cancel on that sleep, simulating an interrupt during the pause.
type MockClock struct {
	CurrentTime time.Time
	Sleeps      []time.Duration
	CancelAfter int
	Cancel      context.CancelFunc
}

func (m *MockClock) Now() time.Time { return m.CurrentTime }

func (m *MockClock) Sleep(ctx context.Context, d time.Duration) error {
	m.Sleeps = append(m.Sleeps, d)
	m.CurrentTime = m.CurrentTime.Add(d)
	if m.CancelAfter > 0 && len(m.Sleeps) == m.CancelAfter && m.Cancel != nil {
		m.Cancel()
	}
	return ctx.Err()
}

type PublishedRow struct {
	Row models.PriceRow
	Seq int64
}

type MockTap struct {
	Rows       []PublishedRow
	ShouldFail bool
	Closed     bool
}

func (m *MockTap) Name() string { return "mock" }

func (m *MockTap) Publish(ctx context.Context, row models.PriceRow, seq int64) error {
	if m.ShouldFail {
		return errors.New("tap down")
	}
	m.Rows = append(m.Rows, PublishedRow{Row: row, Seq: seq})
	return nil
}

func (m *MockTap) Close() error {
	m.Closed = true
	return nil
}

// MockKafkaWriter records messages. With Block set it behaves like a broker
// that never answers: WriteMessages waits for ctx to end.
type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	ShouldFail bool
	Block      bool
	Closed     bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.Block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

// MockBrokerConn reports the topic as ready once ReadPartitions has been
// called more than ReadyAfter times.
type MockBrokerConn struct {
	Created    []kafka.TopicConfig
	CreateErr  error
	ReadyAfter int
	Reads      int
	Closed     int
}

func (m *MockBrokerConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "controller", Port: 9093, ID: 1}, nil
}

func (m *MockBrokerConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.Created = append(m.Created, topics...)
	return m.CreateErr
}

func (m *MockBrokerConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	m.Reads++
	if m.Reads <= m.ReadyAfter {
		return nil, nil
	}
	var out []kafka.Partition
	for _, t := range topics {
		out = append(out, kafka.Partition{Topic: t, ID: 0})
	}
	return out, nil
}

func (m *MockBrokerConn) Close() error {
	m.Closed++
	return nil
}

// MockBrokerDialer hands out Conn for every address not listed in Refuse.
type MockBrokerDialer struct {
	Conn   *MockBrokerConn
	Refuse map[string]bool
	Dialed []string
}

func (m *MockBrokerDialer) DialBroker(ctx context.Context, addr string) (tap.BrokerConn, error) {
	m.Dialed = append(m.Dialed, addr)
	if m.Refuse[addr] {
		return nil, fmt.Errorf("dial broker %s: connection refused", addr)
	}
	if m.Conn == nil {
		m.Conn = &MockBrokerConn{}
	}
	return m.Conn, nil
}

// WriteCSV writes lines to a file under t.TempDir and returns its path.
func WriteCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// ReadLines returns the lines of a file without the trailing newline.
func ReadLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	s := strings.TrimSuffix(string(data), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

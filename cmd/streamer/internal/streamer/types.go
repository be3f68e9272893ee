package streamer

import (
	"context"
	"time"

	"github.com/shubham-shewale/stock-streamer/pkg/models"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Sender transmits one payload as one datagram
type Sender interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// Tap receives a copy of every row that was transmitted
type Tap interface {
	Name() string
	Publish(ctx context.Context, row models.PriceRow, seq int64) error
	Close() error
}

// Options is the fixed configuration of one run.
type Options struct {
	InputFile  string
	OutputFile string
	Host       string
	Port       int
	Interval   time.Duration
}

// Stats reports what a run transmitted
type Stats struct {
	Rows int
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package streamer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-streamer/pkg/models"
)

var ErrNoHeader = errors.New("input has no header row")

type Streamer struct {
	opts   Options
	logger *zap.Logger
	sender Sender
	clock  Clock
	taps   []Tap
}

func NewStreamer(opts Options, logger *zap.Logger, sender Sender, clock Clock, taps ...Tap) *Streamer {
	return &Streamer{
		opts:   opts,
		logger: logger,
		sender: sender,
		clock:  clock,
		taps:   taps,
	}
}

// Run replays every data row of the input file: send, mirror, log, sleep.
// It stops at end of input, on ctx cancellation, or at the first failure;
// rows already sent stay sent and stay in the mirror file.
func (s *Streamer) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	dest := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	s.logger.Info("Starting to stream data", zap.String("input", s.opts.InputFile), zap.String("destination", dest))

	in, err := os.Open(s.opts.InputFile)
	if err != nil {
		return stats, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(s.opts.OutputFile)
	if err != nil {
		return stats, fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	s.logger.Info("Opened for reading", zap.String("input", s.opts.InputFile))

	reader := NewRowReader(in)
	mirror := NewMirror(out)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return stats, ErrNoHeader
	}
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	s.logger.Info("Skipped header row", zap.Strings("header", header))
	if err := mirror.WriteFields(header); err != nil {
		return stats, fmt.Errorf("write header: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}

		row, err := models.ParseRow(fields)
		if err != nil {
			return stats, fmt.Errorf("row %d: %w", stats.Rows+1, err)
		}

		msg := row.Message()
		s.logger.Debug("Prepared message", zap.String("message", row.Display()))

		if err := s.sender.Send(ctx, msg); err != nil {
			return stats, err
		}
		stats.Rows++

		if err := mirror.WriteLine(row.MirrorLine()); err != nil {
			return stats, fmt.Errorf("write row %d: %w", stats.Rows, err)
		}

		s.publish(ctx, row, int64(stats.Rows))

		s.logger.Info("Sent",
			zap.ByteString("message", msg),
			zap.Int("port", s.opts.Port),
			zap.String("hint", "Hit CTRL-c to stop."),
		)

		if err := s.clock.Sleep(ctx, s.opts.Interval); err != nil {
			return stats, err
		}
	}
}

// publish hands the row to every tap. Tap failures are logged only: the
// datagram has already gone out and the mirror already records it.
func (s *Streamer) publish(ctx context.Context, row models.PriceRow, seq int64) {
	for _, t := range s.taps {
		if err := t.Publish(ctx, row, seq); err != nil {
			s.logger.Error("Tap publish error", zap.String("tap", t.Name()), zap.Int64("seq", seq), zap.Error(err))
		}
	}
}

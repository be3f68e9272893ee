package streamer_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shubham-shewale/stock-streamer/cmd/streamer/internal/streamer"
	"github.com/shubham-shewale/stock-streamer/cmd/streamer/internal/testutils"
	"github.com/shubham-shewale/stock-streamer/pkg/models"
)

const header = "Date,Open,High,Low,Close,Adj Close,Volume"

var rows = []string{
	"2020-01-02,28.3,28.7,27.9,28.68,28.68,142981500",
	"2020-01-03,29.37,30.27,29.13,29.53,29.53,266677500",
	"2020-01-06,29.36,30.1,29.33,30.1,30.1,151995000",
}

func newStreamer(t *testing.T, input string, sender streamer.Sender, clock streamer.Clock, taps ...streamer.Tap) (*streamer.Streamer, string) {
	t.Helper()
	output := filepath.Join(t.TempDir(), "out.txt")
	opts := streamer.Options{
		InputFile:  input,
		OutputFile: output,
		Host:       "localhost",
		Port:       9999,
		Interval:   time.Second,
	}
	return streamer.NewStreamer(opts, zap.NewNop(), sender, clock, taps...), output
}

func TestStreamer_SendsEveryRow(t *testing.T) {
	input := testutils.WriteCSV(t, append([]string{header}, rows...)...)
	sender := &testutils.MockSender{}
	clock := &testutils.MockClock{}

	s, output := newStreamer(t, input, sender, clock)

	stats, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Rows != 3 {
		t.Errorf("Expected 3 rows, got %d", stats.Rows)
	}

	sent := sender.Sent()
	want := []string{
		"[2020-01-02, 28.3, 28.7, 27.9, 28.68, 28.68, 142981500]",
		"[2020-01-03, 29.37, 30.27, 29.13, 29.53, 29.53, 266677500]",
		"[2020-01-06, 29.36, 30.1, 29.33, 30.1, 30.1, 151995000]",
	}
	if len(sent) != len(want) {
		t.Fatalf("Expected %d datagrams, got %d", len(want), len(sent))
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Errorf("datagram %d: expected %q, got %q", i, want[i], sent[i])
		}
	}

	lines := testutils.ReadLines(t, output)
	wantLines := []string{
		"Date|Open|High|Low|Close|Adj Close|Volume",
		"2020-01-02|28.3|28.7|27.9|28.68|28.68|142981500",
		"2020-01-03|29.37|30.27|29.13|29.53|29.53|266677500",
		"2020-01-06|29.36|30.1|29.33|30.1|30.1|151995000",
	}
	if len(lines) != len(wantLines) {
		t.Fatalf("Expected %d output lines, got %d: %v", len(wantLines), len(lines), lines)
	}
	for i := range wantLines {
		if lines[i] != wantLines[i] {
			t.Errorf("line %d: expected %q, got %q", i, wantLines[i], lines[i])
		}
	}
}

func TestStreamer_SleepsOneSecondAfterEachRow(t *testing.T) {
	input := testutils.WriteCSV(t, append([]string{header}, rows...)...)
	clock := &testutils.MockClock{CurrentTime: time.Unix(0, 0)}

	s, _ := newStreamer(t, input, &testutils.MockSender{}, clock)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(clock.Sleeps) != len(rows) {
		t.Fatalf("Expected %d sleeps, got %d", len(rows), len(clock.Sleeps))
	}
	for i, d := range clock.Sleeps {
		if d != time.Second {
			t.Errorf("sleep %d: expected 1s, got %s", i, d)
		}
	}
	if !clock.Now().Equal(time.Unix(3, 0)) {
		t.Errorf("Expected 3s of virtual time, got %s", clock.Now())
	}
}

func TestStreamer_MalformedRowStopsStream(t *testing.T) {
	// malformed row at data position k=3
	input := testutils.WriteCSV(t,
		header,
		rows[0],
		rows[1],
		"2020-01-06,29.36,30.1",
		rows[2],
	)
	sender := &testutils.MockSender{}

	s, output := newStreamer(t, input, sender, &testutils.MockClock{})

	stats, err := s.Run(context.Background())
	if !errors.Is(err, models.ErrMalformedRow) {
		t.Fatalf("Expected ErrMalformedRow, got %v", err)
	}
	if stats.Rows != 2 || len(sender.Sent()) != 2 {
		t.Errorf("Expected 2 datagrams before failure, got stats=%d sent=%d", stats.Rows, len(sender.Sent()))
	}
	if lines := testutils.ReadLines(t, output); len(lines) != 3 {
		t.Errorf("Expected header + 2 rows in output, got %d lines", len(lines))
	}
}

func TestStreamer_TruncatesOutputAndIsRepeatable(t *testing.T) {
	input := testutils.WriteCSV(t, append([]string{header}, rows...)...)
	s, output := newStreamer(t, input, &testutils.MockSender{}, &testutils.MockClock{})

	if err := os.WriteFile(output, []byte("stale\nstale\nstale\nstale\nstale\nstale\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	second, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Errorf("Output differs between runs:\n%s\n---\n%s", first, second)
	}
	if lines := testutils.ReadLines(t, output); len(lines) != len(rows)+1 {
		t.Errorf("Expected %d lines, got %d", len(rows)+1, len(lines))
	}
}

func TestStreamer_HeaderOnly(t *testing.T) {
	input := testutils.WriteCSV(t, header)
	sender := &testutils.MockSender{}

	s, output := newStreamer(t, input, sender, &testutils.MockClock{})
	stats, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Rows != 0 || len(sender.Sent()) != 0 {
		t.Error("No datagrams expected for header-only input")
	}
	if lines := testutils.ReadLines(t, output); len(lines) != 1 {
		t.Errorf("Expected only the header line, got %v", lines)
	}
}

func TestStreamer_EmptyInput(t *testing.T) {
	input := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(input, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	s, _ := newStreamer(t, input, &testutils.MockSender{}, &testutils.MockClock{})
	if _, err := s.Run(context.Background()); !errors.Is(err, streamer.ErrNoHeader) {
		t.Errorf("Expected ErrNoHeader, got %v", err)
	}
}

func TestStreamer_MissingInput(t *testing.T) {
	s, output := newStreamer(t, filepath.Join(t.TempDir(), "nope.csv"), &testutils.MockSender{}, &testutils.MockClock{})

	_, err := s.Run(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
	if _, statErr := os.Stat(output); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("Output should not be created when input cannot be opened")
	}
}

func TestStreamer_SendErrorStopsStream(t *testing.T) {
	input := testutils.WriteCSV(t, append([]string{header}, rows...)...)
	sender := &testutils.MockSender{ShouldFail: true}

	s, output := newStreamer(t, input, sender, &testutils.MockClock{})
	stats, err := s.Run(context.Background())
	if err == nil {
		t.Fatal("Expected send error")
	}
	if stats.Rows != 0 {
		t.Errorf("Expected 0 rows, got %d", stats.Rows)
	}
	if lines := testutils.ReadLines(t, output); len(lines) != 1 {
		t.Errorf("Only the header should be mirrored, got %v", lines)
	}
}

func TestStreamer_InterruptDuringPause(t *testing.T) {
	input := testutils.WriteCSV(t, append([]string{header}, rows...)...)
	sender := &testutils.MockSender{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := &testutils.MockClock{CancelAfter: 2, Cancel: cancel}

	s, output := newStreamer(t, input, sender, clock)
	stats, err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if stats.Rows != 2 || len(sender.Sent()) != 2 {
		t.Errorf("Expected 2 rows before interrupt, got %d", stats.Rows)
	}
	if lines := testutils.ReadLines(t, output); len(lines) != 3 {
		t.Errorf("Expected header + 2 rows, got %v", lines)
	}
}

func TestStreamer_TapsSeeTransmittedRows(t *testing.T) {
	input := testutils.WriteCSV(t, append([]string{header}, rows...)...)
	good := &testutils.MockTap{}
	broken := &testutils.MockTap{ShouldFail: true}

	s, _ := newStreamer(t, input, &testutils.MockSender{}, &testutils.MockClock{}, broken, good)
	stats, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("tap failures must not stop the stream: %v", err)
	}
	if stats.Rows != 3 || len(good.Rows) != 3 {
		t.Fatalf("Expected 3 rows published, got %d", len(good.Rows))
	}
	for i, p := range good.Rows {
		if p.Seq != int64(i+1) {
			t.Errorf("row %d: expected seq %d, got %d", i, i+1, p.Seq)
		}
	}
	if good.Rows[0].Row.Date != "2020-01-02" {
		t.Errorf("Unexpected first row %+v", good.Rows[0].Row)
	}
}

func TestStreamer_LogsEachSend(t *testing.T) {
	input := testutils.WriteCSV(t, append([]string{header}, rows...)...)
	core, logs := observer.New(zap.InfoLevel)

	opts := streamer.Options{
		InputFile:  input,
		OutputFile: filepath.Join(t.TempDir(), "out.txt"),
		Host:       "localhost",
		Port:       9999,
		Interval:   time.Second,
	}
	s := streamer.NewStreamer(opts, zap.New(core), &testutils.MockSender{}, &testutils.MockClock{})
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if n := logs.FilterMessage("Sent").Len(); n != len(rows) {
		t.Errorf("Expected %d send logs, got %d", len(rows), n)
	}
	if logs.FilterMessage("Skipped header row").Len() != 1 {
		t.Error("Expected header log line")
	}
}

func TestRealClock_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := streamer.RealClock{}.Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep should return immediately when cancelled")
	}
}

func TestMirror_WritesPipeLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.txt")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	m := streamer.NewMirror(f)
	if err := m.WriteFields([]string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}

	// flushed without closing
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a|b|c\n" {
		t.Errorf("Expected %q, got %q", "a|b|c\n", data)
	}
}

func TestStreamer_BlankLineStopsStream(t *testing.T) {
	input := testutils.WriteCSV(t, header, rows[0], "", rows[1], rows[2])
	sender := &testutils.MockSender{}

	s, output := newStreamer(t, input, sender, &testutils.MockClock{})

	stats, err := s.Run(context.Background())
	if !errors.Is(err, models.ErrMalformedRow) {
		t.Fatalf("Expected ErrMalformedRow for blank line, got %v", err)
	}
	if stats.Rows != 1 || len(sender.Sent()) != 1 {
		t.Errorf("Expected 1 datagram before the blank line, got stats=%d sent=%d", stats.Rows, len(sender.Sent()))
	}
	if lines := testutils.ReadLines(t, output); len(lines) != 2 {
		t.Errorf("Expected header + 1 row, got %v", lines)
	}
}

func TestStreamer_TrailingBlankLineStopsStream(t *testing.T) {
	input := testutils.WriteCSV(t, header, rows[0], "")
	sender := &testutils.MockSender{}

	s, _ := newStreamer(t, input, sender, &testutils.MockClock{})

	stats, err := s.Run(context.Background())
	if !errors.Is(err, models.ErrMalformedRow) {
		t.Fatalf("Expected ErrMalformedRow for trailing blank line, got %v", err)
	}
	if stats.Rows != 1 {
		t.Errorf("Expected 1 row, got %d", stats.Rows)
	}
}

func TestStreamer_StrayQuoteIsText(t *testing.T) {
	input := testutils.WriteCSV(t,
		header,
		rows[0],
		`2020-01-03,29.37,30.27,29.13,29.53,26"6,266677500`,
		rows[2],
	)
	sender := &testutils.MockSender{}

	s, output := newStreamer(t, input, sender, &testutils.MockClock{})

	stats, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Rows != 3 {
		t.Fatalf("Expected 3 rows, got %d", stats.Rows)
	}
	if got := sender.Sent()[1]; got != `[2020-01-03, 29.37, 30.27, 29.13, 29.53, 26"6, 266677500]` {
		t.Errorf("Unexpected datagram %q", got)
	}
	if got := testutils.ReadLines(t, output)[2]; got != `2020-01-03|29.37|30.27|29.13|29.53|26"6|266677500` {
		t.Errorf("Unexpected mirror line %q", got)
	}
}

func TestRowReader_ReportsEmptyLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{"none", "h\na,b\nc\n", [][]string{{"h"}, {"a", "b"}, {"c"}}},
		{"middle", "h\na,b\n\nc\n", [][]string{{"h"}, {"a", "b"}, {}, {"c"}}},
		{"two in a row", "h\n\n\nc\n", [][]string{{"h"}, {}, {}, {"c"}}},
		{"leading", "\nh\nc\n", [][]string{{}, {"h"}, {"c"}}},
		{"trailing", "h\nc\n\n", [][]string{{"h"}, {"c"}, {}}},
		{"crlf", "h\r\n\r\nc\r\n", [][]string{{"h"}, {}, {"c"}}},
		{"quoted newline", "h\n\"x\ny\",z\n\nc\n", [][]string{{"h"}, {"x\ny", "z"}, {}, {"c"}}},
		{"no final newline", "h\nc", [][]string{{"h"}, {"c"}}},
		{"only blank", "\n", [][]string{{}}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := streamer.NewRowReader(strings.NewReader(tt.input))
			var got [][]string
			for {
				rec, err := rr.Read()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("Read failed: %v", err)
				}
				got = append(got, rec)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

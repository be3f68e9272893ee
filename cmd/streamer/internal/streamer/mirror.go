package streamer

import (
	"bufio"
	"io"
	"strings"
)

const mirrorDelimiter = "|"

// Mirror appends pipe-joined lines to the output file. Each line is flushed
// as soon as it is written so the file matches what was transmitted so far.
type Mirror struct {
	w *bufio.Writer
}

func NewMirror(w io.Writer) *Mirror {
	return &Mirror{w: bufio.NewWriter(w)}
}

func (m *Mirror) WriteFields(fields []string) error {
	return m.WriteLine(strings.Join(fields, mirrorDelimiter))
}

func (m *Mirror) WriteLine(line string) error {
	if _, err := m.w.WriteString(line); err != nil {
		return err
	}
	if err := m.w.WriteByte('\n'); err != nil {
		return err
	}
	return m.w.Flush()
}

package streamer

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// RowReader yields one record per input line. encoding/csv drops empty lines;
// RowReader reports each of them as an empty record instead, so a blank line
// is a row with zero fields like any other malformed row.
type RowReader struct {
	csv    *csv.Reader
	line   int   // line the next record should start on
	offset int64 // input offset just past the last record
	blanks int
	held   []string
	atEOF  bool
}

func NewRowReader(r io.Reader) *RowReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // field count is checked per row by models.ParseRow
	cr.LazyQuotes = true    // fields are text; a stray quote is part of the value
	return &RowReader{csv: cr, line: 1}
}

func (rr *RowReader) Read() ([]string, error) {
	if rr.blanks > 0 {
		rr.blanks--
		return []string{}, nil
	}
	if rr.held != nil {
		rec := rr.held
		rr.held = nil
		return rec, nil
	}
	if rr.atEOF {
		return nil, io.EOF
	}

	rec, err := rr.csv.Read()
	if errors.Is(err, io.EOF) {
		rr.atEOF = true
		// bytes consumed after the last record can only be empty lines
		if rr.csv.InputOffset() > rr.offset {
			return []string{}, nil
		}
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}

	start, _ := rr.csv.FieldPos(0)
	last := len(rec) - 1
	end, _ := rr.csv.FieldPos(last)
	end += strings.Count(rec[last], "\n") // quoted fields may span lines

	skipped := start - rr.line
	rr.line = end + 1
	rr.offset = rr.csv.InputOffset()

	if skipped > 0 {
		rr.blanks = skipped - 1
		rr.held = rec
		return []string{}, nil
	}
	return rec, nil
}

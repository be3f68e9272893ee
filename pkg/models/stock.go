package models

import (
	"errors"
	"fmt"
	"strings"
)

// RowFields is the number of columns in a historical price row
const RowFields = 7

var ErrMalformedRow = errors.New("malformed row")

// PriceRow is one trading day read verbatim from the source file.
// Fields are kept as text; nothing is coerced or validated.
type PriceRow struct {
	Date     string
	Open     string
	High     string
	Low      string
	Close    string
	AdjClose string
	Volume   string
}

// ParseRow unpacks exactly RowFields values in file order.
func ParseRow(fields []string) (PriceRow, error) {
	if len(fields) != RowFields {
		return PriceRow{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRow, RowFields, len(fields))
	}
	return PriceRow{
		Date:     fields[0],
		Open:     fields[1],
		High:     fields[2],
		Low:      fields[3],
		Close:    fields[4],
		AdjClose: fields[5],
		Volume:   fields[6],
	}, nil
}

func (r PriceRow) Fields() []string {
	return []string{r.Date, r.Open, r.High, r.Low, r.Close, r.AdjClose, r.Volume}
}

// Display renders the row as "[f0, f1, ..., f6]"
func (r PriceRow) Display() string {
	return "[" + strings.Join(r.Fields(), ", ") + "]"
}

// Message is the datagram payload for the row (UTF-8, no escaping)
func (r PriceRow) Message() []byte {
	return []byte(r.Display())
}

// MirrorLine joins the fields with '|' in their original order
func (r PriceRow) MirrorLine() string {
	return strings.Join(r.Fields(), "|")
}

// StockUpdate represents a single market tick for a stock symbol
type StockUpdate struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix micro
	SeqID     int64   `json:"seq_id"`    // monotonic counter per symbol
}

package tap

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shubham-shewale/stock-streamer/pkg/models"
)

const dateLayout = "2006-01-02"

var ErrUnconvertible = errors.New("row cannot be converted to a stock update")

// NewUpdate turns a replayed row into a tick: Close is the price, the trading
// date (UTC midnight) is the timestamp, seq is the 1-based row position.
func NewUpdate(symbol string, row models.PriceRow, seq int64) (models.StockUpdate, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(row.Close), 64)
	if err != nil {
		return models.StockUpdate{}, fmt.Errorf("%w: close %q", ErrUnconvertible, row.Close)
	}
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(row.Date), time.UTC)
	if err != nil {
		return models.StockUpdate{}, fmt.Errorf("%w: date %q", ErrUnconvertible, row.Date)
	}
	return models.StockUpdate{
		Symbol:    symbol,
		Price:     price,
		Timestamp: day.UnixMicro(),
		SeqID:     seq,
	}, nil
}

func encodeUpdate(symbol string, row models.PriceRow, seq int64) ([]byte, error) {
	update, err := NewUpdate(symbol, row, seq)
	if err != nil {
		return nil, err
	}
	return json.Marshal(update)
}

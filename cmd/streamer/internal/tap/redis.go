package tap

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-streamer/pkg/models"
)

const channelPrefix = "prices."

// RedisTap publishes each row on prices.<symbol>. PUBLISH only: nothing is
// stored in Redis.
type RedisTap struct {
	logger *zap.Logger
	client RedisPublisher
	symbol string
}

func NewRedisTap(logger *zap.Logger, client RedisPublisher, symbol string) *RedisTap {
	return &RedisTap{logger: logger, client: client, symbol: symbol}
}

func (r *RedisTap) Name() string { return "redis" }

func (r *RedisTap) Channel() string { return channelPrefix + r.symbol }

func (r *RedisTap) Publish(ctx context.Context, row models.PriceRow, seq int64) error {
	payload, err := encodeUpdate(r.symbol, row, seq)
	if errors.Is(err, ErrUnconvertible) {
		r.logger.Warn("Skipping row for redis", zap.Int64("seq", seq), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.Channel(), payload).Err()
}

func (r *RedisTap) Close() error { return r.client.Close() }

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-streamer/cmd/streamer/internal/streamer"
	"github.com/shubham-shewale/stock-streamer/cmd/streamer/internal/tap"
	"github.com/shubham-shewale/stock-streamer/pkg/config"
)

const banner = "==============================================="

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream(ctx, cfg, logger)
}

// stream is the outermost handler: every failure ends up here, logged and not
// re-raised, so the process exits 0.
func stream(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	logger.Info(banner)
	logger.Info("Starting Stock Price Streaming Process.")

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Interrupted, stopping stream")
			return
		}
		logger.Error("An error occurred", zap.Error(err))
		return
	}

	logger.Info("Streaming complete!")
	logger.Info(banner)
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	sender, err := streamer.NewUDPSender(cfg.Stream.Host, cfg.Stream.Port)
	if err != nil {
		return err
	}
	defer sender.Close()
	logger.Info("Datagram socket ready", zap.Stringer("destination", sender.Addr()))

	taps := buildTaps(ctx, cfg, logger)
	defer func() {
		for _, t := range taps {
			if err := t.Close(); err != nil {
				logger.Error("Error closing tap", zap.String("tap", t.Name()), zap.Error(err))
			}
		}
	}()

	opts := streamer.Options{
		InputFile:  cfg.Stream.InputFile,
		OutputFile: cfg.Stream.OutputFile,
		Host:       cfg.Stream.Host,
		Port:       cfg.Stream.Port,
		Interval:   cfg.Stream.Interval,
	}
	s := streamer.NewStreamer(opts, logger, sender, streamer.RealClock{}, taps...)

	stats, err := s.Run(ctx)
	logger.Info("Rows sent", zap.Int("rows", stats.Rows), zap.String("output", cfg.Stream.OutputFile))
	return err
}

func buildTaps(ctx context.Context, cfg *config.Config, logger *zap.Logger) []streamer.Tap {
	var taps []streamer.Tap

	if cfg.Kafka.Enabled {
		setup := tap.NewTopicSetup(logger, tap.NewKafkaDialer(cfg.Kafka.Timeout), streamer.RealClock{})
		if err := setup.Ensure(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			logger.Warn("Kafka topic not confirmed, tap will report publish errors", zap.String("topic", cfg.Kafka.Topic), zap.Error(err))
		}

		writer := tap.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Timeout)
		taps = append(taps, tap.NewKafkaTap(logger, writer, cfg.Stream.Symbol, cfg.Kafka.Timeout))
		logger.Info("Kafka tap enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis not reachable, tap will report publish errors", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		rt := tap.NewRedisTap(logger, rdb, cfg.Stream.Symbol)
		taps = append(taps, rt)
		logger.Info("Redis tap enabled", zap.String("addr", cfg.Redis.Addr), zap.String("channel", rt.Channel()))
	}

	return taps
}

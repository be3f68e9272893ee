package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Listener ListenerConfig `mapstructure:"listener"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type AppConfig struct {
	Env string `mapstructure:"env"` // e.g., "local", "prod"
}

type LoggerConfig struct {
	Level    string `mapstructure:"level"`    // debug | info | warn | error
	Encoding string `mapstructure:"encoding"` // console | json
}

// StreamConfig is the fixed setup of one streaming run.
type StreamConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	InputFile  string        `mapstructure:"input_file"`
	OutputFile string        `mapstructure:"output_file"`
	Interval   time.Duration `mapstructure:"interval"`
	Symbol     string        `mapstructure:"symbol"`
}

type ListenerConfig struct {
	Addr       string `mapstructure:"addr"`
	BufferSize int    `mapstructure:"buffer_size"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Brokers []string      `mapstructure:"brokers"`
	Topic   string        `mapstructure:"topic"`
	Timeout time.Duration `mapstructure:"timeout"` // per-publish bound
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// .env values become real env vars, so STREAM_PORT etc. work from either place
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	setDefaults(v)

	// "stream.port" -> "STREAM_PORT"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not populate nested structs on Unmarshal
	bindEnv(v, "app.env")
	bindEnv(v, "logger.level", "logger.encoding")
	bindEnv(v, "stream.host", "stream.port", "stream.input_file", "stream.output_file", "stream.interval", "stream.symbol")
	bindEnv(v, "listener.addr", "listener.buffer_size")
	bindEnv(v, "redis.enabled", "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "kafka.enabled", "kafka.brokers", "kafka.topic", "kafka.timeout")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "local")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")

	v.SetDefault("stream.host", "localhost")
	v.SetDefault("stream.port", 9999)
	v.SetDefault("stream.input_file", "tsla.csv")
	v.SetDefault("stream.output_file", "out9.txt")
	v.SetDefault("stream.interval", time.Second)
	v.SetDefault("stream.symbol", "TSLA")

	v.SetDefault("listener.addr", "localhost:9999")
	v.SetDefault("listener.buffer_size", 2048)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "market_ticks")
	v.SetDefault("kafka.timeout", 500*time.Millisecond)
}

// Validate rejects settings the streamer cannot run with.
func (c *Config) Validate() error {
	if c.Stream.Port < 1 || c.Stream.Port > 65535 {
		return fmt.Errorf("stream port out of range: %d", c.Stream.Port)
	}
	if c.Stream.Interval < 0 {
		return fmt.Errorf("stream interval cannot be negative: %s", c.Stream.Interval)
	}
	if c.Stream.InputFile == "" || c.Stream.OutputFile == "" {
		return fmt.Errorf("stream input and output files must be set")
	}
	if c.Listener.BufferSize <= 0 {
		return fmt.Errorf("listener buffer size must be positive: %d", c.Listener.BufferSize)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers cannot be empty")
	}
	if c.Kafka.Timeout < 0 {
		return fmt.Errorf("kafka timeout cannot be negative: %s", c.Kafka.Timeout)
	}
	return nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}

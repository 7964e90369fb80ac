// Package config loads the settings of the tidings binary from defaults, an
// optional config file and TIDINGS_* environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/casualjim/tidings/internal/queue"
	"github.com/spf13/viper"
)

const envPrefix = "TIDINGS"

const (
	KeyProducerDelay  = "producer.delay"
	KeyProducerAuthor = "producer.author"
	KeyProducerText   = "producer.comment"
	KeyQueueCapacity  = "queue.capacity"
	KeyQueueOverflow  = "queue.overflow"
	KeyLogLevel       = "log.level"
	KeySessions       = "sessions"
	KeyConsumeTimeout = "consume.timeout"
)

// Config is the resolved configuration.
type Config struct {
	ProducerDelay  time.Duration
	ProducerAuthor string
	ProducerText   string
	QueueCapacity  int
	QueueOverflow  queue.Policy
	LogLevel       slog.Level
	Sessions       []string
	ConsumeTimeout time.Duration
}

// New returns a viper instance with defaults and environment binding in place.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyProducerDelay, time.Second)
	v.SetDefault(KeyProducerAuthor, "nshaikhinurov")
	v.SetDefault(KeyProducerText, "Updated a post")
	v.SetDefault(KeyQueueCapacity, 0)
	v.SetDefault(KeyQueueOverflow, queue.DropOldest.String())
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeySessions, []string{"s1", "s2"})
	v.SetDefault(KeyConsumeTimeout, 10*time.Second)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (when not empty) into v and resolves the configuration.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	cfg := &Config{
		ProducerDelay:  v.GetDuration(KeyProducerDelay),
		ProducerAuthor: v.GetString(KeyProducerAuthor),
		ProducerText:   v.GetString(KeyProducerText),
		QueueCapacity:  v.GetInt(KeyQueueCapacity),
		Sessions:       v.GetStringSlice(KeySessions),
		ConsumeTimeout: v.GetDuration(KeyConsumeTimeout),
	}

	policy, err := queue.ParsePolicy(v.GetString(KeyQueueOverflow))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.QueueOverflow = policy

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.ProducerDelay < 0 {
		errs = append(errs, fmt.Errorf("config: %s must not be negative", KeyProducerDelay))
	}
	if c.ProducerAuthor == "" {
		errs = append(errs, fmt.Errorf("config: %s is required", KeyProducerAuthor))
	}
	if c.QueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("config: %s must not be negative", KeyQueueCapacity))
	}
	if len(c.Sessions) == 0 {
		errs = append(errs, fmt.Errorf("config: %s needs at least one session key", KeySessions))
	}
	return errors.Join(errs...)
}

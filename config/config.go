package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the root configuration for the relay process.
type Config struct {
	Listen   string      `mapstructure:"listen"`
	LogLevel string      `mapstructure:"log_level"`
	Relay    RelayConfig `mapstructure:"relay"`
	AMQP     AMQPConfig  `mapstructure:"amqp"`
}

// RelayConfig tunes the delivery core.
type RelayConfig struct {
	// AdminUser is the single reserved identity allowed to issue exile commands.
	AdminUser string `mapstructure:"admin_user"`
	// MailboxSize is the buffer capacity of each connection's outbound mailbox.
	MailboxSize int `mapstructure:"mailbox_size"`
	// SendTimeout bounds how long a single delivery may wait on a saturated mailbox.
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	// BroadcastWorkers caps concurrent fan-out during a broadcast.
	BroadcastWorkers int `mapstructure:"broadcast_workers"`
	// FailureJournalSize bounds the LRU journal of recent delivery failures.
	FailureJournalSize int `mapstructure:"failure_journal_size"`
}

// AMQPConfig wires the optional message-bus surface. An empty URL disables it.
type AMQPConfig struct {
	URL string `mapstructure:"url"`
}

func (a AMQPConfig) Enabled() bool { return a.URL != "" }

// LoadConfig reads configuration from an optional file and IM_RELAY_* environment
// variables, applying defaults for everything left unset.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("relay.admin_user", "ADMIN")
	v.SetDefault("relay.mailbox_size", 256)
	v.SetDefault("relay.send_timeout", 500*time.Millisecond)
	v.SetDefault("relay.broadcast_workers", 8)
	v.SetDefault("relay.failure_journal_size", 128)

	v.SetEnvPrefix("IM_RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		// Reconfiguration without a restart is not supported; the watcher only
		// reports that the file on disk no longer matches the running process.
		v.OnConfigChange(func(e fsnotify.Event) {
			slog.Info("config file changed, restart to apply", "file", e.Name)
		})
		v.WatchConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

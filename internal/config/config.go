package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Languages  []string         `mapstructure:"languages"`
	Directory  DirectoryConfig  `mapstructure:"directory"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Transports TransportsConfig `mapstructure:"transports"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

// APIConfig holds REST API server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	APIKeys      []string      `mapstructure:"api_keys"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	PoolMin        int32         `mapstructure:"pool_min"`
	PoolMax        int32         `mapstructure:"pool_max"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"` // stdout (default) or file
	FilePath  string `mapstructure:"file_path"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// DirectoryConfig holds the contact directory service configuration.
type DirectoryConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Fake enables the built-in fake contact info endpoint on the API
	// server, for development without a real directory service.
	Fake bool `mapstructure:"fake"`
}

// QueueConfig holds the dispatch trigger queue configuration.
type QueueConfig struct {
	// Type selects the queue backend: "redis" (default) or "sqs".
	Type string `mapstructure:"type"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	StreamName    string `mapstructure:"stream_name"`
	GroupName     string `mapstructure:"group_name"`

	SQSRegion   string `mapstructure:"sqs_region"`
	SQSQueueURL string `mapstructure:"sqs_queue_url"`
	SQSWaitTime int32  `mapstructure:"sqs_wait_time"` // long poll seconds

	WorkerCount     int           `mapstructure:"worker_count"`
	BlockTimeout    time.Duration `mapstructure:"block_timeout"`
	ProcessTimeout  time.Duration `mapstructure:"process_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TransportsConfig holds the ordered transport list and the per-transport
// settings. The order of Enabled defines assignment priority: the first
// suitable transport wins a recipient.
type TransportsConfig struct {
	Enabled    []string         `mapstructure:"enabled"`
	Mailgun    MailgunConfig    `mapstructure:"mailgun"`
	SMTP       SMTPConfig       `mapstructure:"smtp"`
	SMS        SMSConfig        `mapstructure:"sms"`
	Pushbullet PushbulletConfig `mapstructure:"pushbullet"`
	FCM        FCMConfig        `mapstructure:"fcm"`
}

// MailgunConfig holds Mailgun email transport settings.
type MailgunConfig struct {
	Domain   string `mapstructure:"domain"`
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// SMTPConfig holds SMTP relay transport settings.
type SMTPConfig struct {
	Addr     string `mapstructure:"addr"` // host:port
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SMSConfig holds SMS gateway transport settings.
type SMSConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Sender   string `mapstructure:"sender"`
}

// PushbulletConfig holds Pushbullet transport settings. Access tokens are
// per-recipient, so only the endpoint override lives here.
type PushbulletConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// FCMConfig holds Firebase Cloud Messaging transport settings.
type FCMConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// WorkerConfig holds dispatch worker configuration. The schedules are cron
// expressions for the periodic enrichment and send sweeps.
type WorkerConfig struct {
	EnrichSchedule string `mapstructure:"enrich_schedule"`
	SendSchedule   string `mapstructure:"send_schedule"`
}

// Load reads configuration from the given config directory path. It looks
// for a file named "config.yaml" in that directory. Environment variables
// with prefix CARRIER_ override file values; for example
// CARRIER_DATABASE_URL overrides database.url.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix("CARRIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("languages", []string{"fi", "sv", "en"})
	v.SetDefault("queue.type", "redis")
	v.SetDefault("queue.stream_name", "carrier:dispatch")
	v.SetDefault("queue.group_name", "carrier-workers")
	v.SetDefault("queue.worker_count", 4)
	v.SetDefault("queue.block_timeout", 5*time.Second)
	v.SetDefault("queue.process_timeout", 60*time.Second)
	v.SetDefault("queue.shutdown_timeout", 30*time.Second)
	v.SetDefault("worker.enrich_schedule", "@every 1m")
	v.SetDefault("worker.send_schedule", "@every 1m")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

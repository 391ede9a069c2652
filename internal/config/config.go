package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Mailer   MailerConfig   `mapstructure:"mailer"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// StorageConfig points at the S3-compatible bucket holding the queue
// document.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	StateKey  string `mapstructure:"state_key"`
}

type FeedConfig struct {
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// MailerConfig holds the email-campaign provider credentials.
type MailerConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	ListID     string        `mapstructure:"list_id"`
	FromName   string        `mapstructure:"from_name"`
	FromEmail  string        `mapstructure:"from_email"`
	ReplyTo    string        `mapstructure:"reply_to"`
	AlertEmail string        `mapstructure:"alert_email"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type QueueConfig struct {
	Threshold int `mapstructure:"threshold"`
	// BatchLimit caps the jobs per campaign. Zero means one threshold's
	// worth per send.
	BatchLimit        int `mapstructure:"batch_limit"`
	CleanupMaxAgeDays int `mapstructure:"cleanup_max_age_days"`
}

type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "jobdigest")
	v.SetDefault("storage.state_key", "state/job-queue.json")
	v.SetDefault("feed.timeout", 30*time.Second)
	v.SetDefault("feed.user_agent", "jobdigest/1.0")
	v.SetDefault("mailer.timeout", 60*time.Second)
	v.SetDefault("mailer.from_name", "Job Digest")
	v.SetDefault("queue.threshold", 10)
	v.SetDefault("queue.batch_limit", 0)
	v.SetDefault("queue.cleanup_max_age_days", 30)
	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.cron", "0 8 * * *")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.use_ssl", "STORAGE_USE_SSL")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("feed.url", "FEED_URL")
	v.BindEnv("mailer.base_url", "MAILER_BASE_URL")
	v.BindEnv("mailer.api_key", "MAILER_API_KEY")
	v.BindEnv("mailer.list_id", "MAILER_LIST_ID")
	v.BindEnv("mailer.from_email", "MAILER_FROM_EMAIL")
	v.BindEnv("mailer.alert_email", "MAILER_ALERT_EMAIL")
	v.BindEnv("queue.threshold", "QUEUE_THRESHOLD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings a dispatch cycle cannot run without.
// Missing values here are configuration errors: fatal before any work is
// attempted.
func (c *Config) Validate() error {
	var errs []error
	if c.Feed.URL == "" {
		errs = append(errs, errors.New("feed.url is required"))
	}
	if c.Mailer.APIKey == "" {
		errs = append(errs, errors.New("mailer.api_key is required"))
	}
	if c.Mailer.FromEmail == "" {
		errs = append(errs, errors.New("mailer.from_email is required"))
	}
	if c.Queue.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("queue.threshold must be positive, got %d", c.Queue.Threshold))
	}
	return errors.Join(errs...)
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "jobdigest", cfg.Storage.Bucket)
	assert.Equal(t, "state/job-queue.json", cfg.Storage.StateKey)
	assert.Equal(t, 10, cfg.Queue.Threshold)
	assert.Equal(t, 30, cfg.Queue.CleanupMaxAgeDays)
	assert.Equal(t, "0 8 * * *", cfg.Schedule.Cron)
	assert.False(t, cfg.Schedule.Enabled)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FEED_URL", "https://jobs.example.com/rss")
	t.Setenv("QUEUE_THRESHOLD", "25")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://jobs.example.com/rss", cfg.Feed.URL)
	assert.Equal(t, 25, cfg.Queue.Threshold)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Feed.URL = "https://jobs.example.com/rss"
		cfg.Mailer.APIKey = "key"
		cfg.Mailer.FromEmail = "digest@example.com"
		cfg.Queue.Threshold = 10
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "missing feed url",
			mutate: func(c *Config) { c.Feed.URL = "" },
			want:   "feed.url",
		},
		{
			name:   "missing api key",
			mutate: func(c *Config) { c.Mailer.APIKey = "" },
			want:   "mailer.api_key",
		},
		{
			name:   "missing from email",
			mutate: func(c *Config) { c.Mailer.FromEmail = "" },
			want:   "mailer.from_email",
		},
		{
			name:   "non-positive threshold",
			mutate: func(c *Config) { c.Queue.Threshold = 0 },
			want:   "queue.threshold",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

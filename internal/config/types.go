package config

// Config is the process configuration (JSON or YAML file).
//
// All durations are Go duration strings (e.g. "30s", "1m").
type Config struct {
	Discord  DiscordConfig  `json:"discord"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Poller   PollerConfig   `json:"poller"`
	LeetCode LeetCodeConfig `json:"leetcode,omitempty"`
}

type DiscordConfig struct {
	Token string `json:"token"`
	// LogChannel receives forwarded runtime logs (optional).
	LogChannel string `json:"log_channel,omitempty"`
}

type LoggingConfig struct {
	Level   string           `json:"level,omitempty"`
	Console bool             `json:"console"`
	File    LogFileConfig    `json:"file,omitempty"`
	Discord LogDiscordConfig `json:"discord,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type LogDiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type StorageConfig struct {
	// Driver: "file" (default) or "sqlite".
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path"`
	// BusyTimeout applies to sqlite only.
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type PollerConfig struct {
	// Interval between submission poll ticks. Default "1m".
	Interval string `json:"interval,omitempty"`
}

type LeetCodeConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

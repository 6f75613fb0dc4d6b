package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/soubeek/epn-solutions/go/internal/dashboard"
	"github.com/soubeek/epn-solutions/go/internal/kiosk"
	"github.com/soubeek/epn-solutions/go/internal/kiosk/countdown"
	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
)

// Config is the shared configuration file of both binaries.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Server struct {
		BaseURL string `yaml:"base_url"`
		WSBase  string `yaml:"ws_base"`
		Origin  string `yaml:"origin"`
	} `yaml:"server"`

	Reconnect struct {
		Delay       time.Duration `yaml:"delay"`
		MaxAttempts int           `yaml:"max_attempts"`
	} `yaml:"reconnect"`

	Dashboard struct {
		ListenAddr   string `yaml:"listen_addr"`
		MonitorStats bool   `yaml:"monitor_stats"`
		NATS         struct {
			Enabled       bool   `yaml:"enabled"`
			URL           string `yaml:"url"`
			Stream        string `yaml:"stream"`
			SubjectPrefix string `yaml:"subject_prefix"`
		} `yaml:"nats"`
	} `yaml:"dashboard"`

	Kiosk struct {
		HostShellURL      string            `yaml:"host_shell_url"`
		ChannelPath       string            `yaml:"channel_path"`
		KioskMode         bool              `yaml:"kiosk_mode"`
		WidgetDelay       time.Duration     `yaml:"widget_delay"`
		GraceDelay        time.Duration     `yaml:"grace_delay"`
		PollInterval      time.Duration     `yaml:"poll_interval"`
		HeartbeatInterval time.Duration     `yaml:"heartbeat_interval"`
		Recovery          string            `yaml:"recovery"`
		Thresholds        []ThresholdConfig `yaml:"thresholds"`
	} `yaml:"kiosk"`
}

// ThresholdConfig is one countdown alert.
type ThresholdConfig struct {
	Seconds  int    `yaml:"seconds"`
	Severity string `yaml:"severity"`
	Title    string `yaml:"title"`
	Message  string `yaml:"message"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.LogLevel = "info"
	c.Reconnect.Delay = 3 * time.Second
	c.Reconnect.MaxAttempts = 5

	d := dashboard.DefaultConfig()
	c.Dashboard.ListenAddr = ":8090"
	c.Dashboard.MonitorStats = d.MonitorStats
	c.Dashboard.NATS.URL = d.JetStream.URL
	c.Dashboard.NATS.Stream = d.JetStream.StreamName
	c.Dashboard.NATS.SubjectPrefix = d.JetStream.SubjectPrefix

	k := kiosk.DefaultConfig()
	c.Kiosk.HostShellURL = "http://127.0.0.1:7420"
	c.Kiosk.ChannelPath = "/ws/sessions/"
	c.Kiosk.KioskMode = k.Kiosk
	c.Kiosk.WidgetDelay = k.WidgetDelay
	c.Kiosk.GraceDelay = k.GraceDelay
	c.Kiosk.PollInterval = k.PollInterval
	c.Kiosk.HeartbeatInterval = k.HeartbeatInterval
	c.Kiosk.Recovery = string(k.Recovery)
	return &c
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("EPN_LOG_LEVEL", c.LogLevel)
	c.Server.BaseURL = getEnv("EPN_SERVER_URL", c.Server.BaseURL)
	c.Server.WSBase = getEnv("EPN_WS_URL", c.Server.WSBase)
	c.Server.Origin = getEnv("EPN_ORIGIN", c.Server.Origin)
	c.Reconnect.Delay = getEnvAsDuration("EPN_RECONNECT_DELAY", c.Reconnect.Delay)
	c.Reconnect.MaxAttempts = getEnvAsInt("EPN_RECONNECT_MAX_ATTEMPTS", c.Reconnect.MaxAttempts)

	c.Dashboard.ListenAddr = getEnv("EPN_DASHBOARD_ADDR", c.Dashboard.ListenAddr)
	c.Dashboard.NATS.Enabled = getEnvAsBool("EPN_NATS_ENABLED", c.Dashboard.NATS.Enabled)
	c.Dashboard.NATS.URL = getEnv("NATS_URL", c.Dashboard.NATS.URL)

	c.Kiosk.HostShellURL = getEnv("EPN_HOST_SHELL_URL", c.Kiosk.HostShellURL)
	c.Kiosk.KioskMode = getEnvAsBool("EPN_KIOSK_MODE", c.Kiosk.KioskMode)
	c.Kiosk.Recovery = getEnv("EPN_RECOVERY", c.Kiosk.Recovery)
}

// Validate rejects values the components cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Reconnect.Delay <= 0 {
		errs = append(errs, fmt.Errorf("reconnect.delay must be positive, got %s", c.Reconnect.Delay))
	}
	if c.Reconnect.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("reconnect.max_attempts must be at least 1, got %d", c.Reconnect.MaxAttempts))
	}
	if _, err := kiosk.ParseRecoveryPolicy(c.Kiosk.Recovery); err != nil {
		errs = append(errs, fmt.Errorf("kiosk.recovery: %w", err))
	}
	for i, t := range c.Kiosk.Thresholds {
		if t.Seconds <= 0 {
			errs = append(errs, fmt.Errorf("kiosk.thresholds[%d].seconds must be positive", i))
		}
		switch countdown.Severity(t.Severity) {
		case countdown.SeverityWarning, countdown.SeverityCritical:
		default:
			errs = append(errs, fmt.Errorf("kiosk.thresholds[%d].severity %q is not warning or critical", i, t.Severity))
		}
	}
	return errors.Join(errs...)
}

// DashboardConfig builds the dashboard service configuration.
func (c *Config) DashboardConfig() dashboard.Config {
	d := dashboard.DefaultConfig()
	d.WSBase = c.Server.WSBase
	d.Origin = c.Server.Origin
	if d.Origin == "" {
		d.Origin = c.Server.BaseURL
	}
	d.ReconnectDelay = c.Reconnect.Delay
	d.MaxAttempts = c.Reconnect.MaxAttempts
	d.MonitorStats = c.Dashboard.MonitorStats
	d.Publish = c.Dashboard.NATS.Enabled
	d.JetStream.URL = c.Dashboard.NATS.URL
	d.JetStream.StreamName = c.Dashboard.NATS.Stream
	d.JetStream.SubjectPrefix = c.Dashboard.NATS.SubjectPrefix
	return d
}

// KioskConfig builds the kiosk agent configuration.
func (c *Config) KioskConfig() kiosk.Config {
	k := kiosk.DefaultConfig()
	k.Kiosk = c.Kiosk.KioskMode
	k.WidgetDelay = c.Kiosk.WidgetDelay
	k.GraceDelay = c.Kiosk.GraceDelay
	k.PollInterval = c.Kiosk.PollInterval
	k.HeartbeatInterval = c.Kiosk.HeartbeatInterval
	if policy, err := kiosk.ParseRecoveryPolicy(c.Kiosk.Recovery); err == nil {
		k.Recovery = policy
	}
	if len(c.Kiosk.Thresholds) > 0 {
		k.Thresholds = make([]countdown.Threshold, 0, len(c.Kiosk.Thresholds))
		for _, t := range c.Kiosk.Thresholds {
			urgency := countdown.UrgencyNormal
			if countdown.Severity(t.Severity) == countdown.SeverityCritical {
				urgency = countdown.UrgencyCritical
			}
			k.Thresholds = append(k.Thresholds, countdown.Threshold{
				Boundary: t.Seconds,
				Severity: countdown.Severity(t.Severity),
				Notice:   countdown.Notification{Title: t.Title, Message: t.Message, Urgency: urgency},
			})
		}
	}
	return k
}

// KioskChannelConfig builds the kiosk's server channel configuration.
func (c *Config) KioskChannelConfig() (channel.Config, error) {
	origin := c.Server.Origin
	if origin == "" {
		origin = c.Server.BaseURL
	}
	url, err := channel.ResolveEndpoint(c.Server.WSBase, origin, c.Kiosk.ChannelPath)
	if err != nil {
		return channel.Config{}, err
	}
	cfg := channel.DefaultConfig(url)
	cfg.Retry = channel.FixedDelay{Delay: c.Reconnect.Delay, MaxAttempts: c.Reconnect.MaxAttempts}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Asia/Seoul"

	// PathEnv names the YAML config file when --config is not given.
	PathEnv = "POLICY_DIGEST_CONFIG"

	logLevelEnv          = "LOG_LEVEL"
	logFormatEnv         = "LOG_FORMAT"
	naverClientIDEnv     = "NAVER_CLIENT_ID"
	naverClientSecretEnv = "NAVER_CLIENT_SECRET"
	slackWebhookEnv      = "SLACK_WEBHOOK_URL"
	slackBotTokenEnv     = "SLACK_BOT_TOKEN"
	slackChannelEnv      = "SLACK_CHANNEL_ID"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv    = "TELEGRAM_CHAT_ID"
	webhookURLEnv        = "DIGEST_WEBHOOK_URL"
	webhookKeyEnv        = "DIGEST_WEBHOOK_API_KEY"
	databaseDSNEnv       = "DATABASE_DSN"
	historyFileEnv       = "HISTORY_FILE"
)

// History backends.
const (
	HistoryFile     = "file"
	HistoryPostgres = "postgres"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Crawl         CrawlConfig        `yaml:"crawl"`
	Filter        FilterConfig       `yaml:"filter"`
	Naver         NaverConfig        `yaml:"naver"`
	History       HistoryConfig      `yaml:"history"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig sets the slog level and record format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CrawlConfig paces and identifies outgoing requests.
type CrawlConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Delay     time.Duration `yaml:"delay"`
	UserAgent string        `yaml:"userAgent"`
}

// FilterConfig tunes recency and urgency windows.
type FilterConfig struct {
	LookbackDays int      `yaml:"lookbackDays"`
	UrgentDays   int      `yaml:"urgentDays"`
	NewsSources  []string `yaml:"newsSources"`
}

// NaverConfig carries search API credentials and keywords.
type NaverConfig struct {
	ClientID     string   `yaml:"clientId"`
	ClientSecret string   `yaml:"clientSecret"`
	Keywords     []string `yaml:"keywords"`
	Display      int      `yaml:"display"`
}

// HistoryConfig selects where delivered URLs are remembered.
type HistoryConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Limit   int    `yaml:"limit"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when the daemon runs the pipeline.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	RunOnStart     bool           `yaml:"runOnStart"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	if loc, err := time.LoadLocation(defaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Slack    SlackConfig    `yaml:"slack"`
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	// Limits caps the summary per category key (urgent, new, news); negative means unlimited.
	Limits     map[string]int `yaml:"limits"`
	TitleWidth int            `yaml:"titleWidth"`
}

// SlackConfig holds bot and webhook credentials.
type SlackConfig struct {
	BotToken   string `yaml:"botToken"`
	ChannelID  string `yaml:"channelId"`
	WebhookURL string `yaml:"webhookUrl"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// WebhookConfig targets a generic JSON consumer.
type WebhookConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"apiKey"`
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name     string            `yaml:"name"`
	Scanner  string            `yaml:"scanner"`
	URL      string            `yaml:"url"`
	Disabled bool              `yaml:"disabled"`
	Options  map[string]string `yaml:"options"`
}

// Load applies, in order: defaults, the YAML file at path (or $POLICY_DIGEST_CONFIG),
// .env files and environment overrides. A missing config file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	for _, envFile := range []string{".env.local", ".env"} {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}

	if len(cfg.Sites) == 0 {
		cfg.Sites = Default().Sites
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings that cannot run.
func (c Config) Validate() error {
	switch c.History.Backend {
	case HistoryFile:
		if c.History.Path == "" {
			return errors.New("history.path is required for the file backend")
		}
	case HistoryPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres history backend")
		}
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}

	seen := map[string]struct{}{}
	for _, site := range c.Sites {
		if site.Name == "" || site.Scanner == "" {
			return fmt.Errorf("site %q: name and scanner are required", site.Name)
		}
		if _, dup := seen[site.Name]; dup {
			return fmt.Errorf("site %q is declared twice", site.Name)
		}
		seen[site.Name] = struct{}{}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{logLevelEnv, &c.Logging.Level},
		{logFormatEnv, &c.Logging.Format},
		{naverClientIDEnv, &c.Naver.ClientID},
		{naverClientSecretEnv, &c.Naver.ClientSecret},
		{slackWebhookEnv, &c.Notifications.Slack.WebhookURL},
		{slackBotTokenEnv, &c.Notifications.Slack.BotToken},
		{slackChannelEnv, &c.Notifications.Slack.ChannelID},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{webhookURLEnv, &c.Notifications.Webhook.URL},
		{webhookKeyEnv, &c.Notifications.Webhook.APIKey},
		{databaseDSNEnv, &c.Database.DSN},
		{historyFileEnv, &c.History.Path},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("scheduler timezone %s: %w", tz, err)
	}
	c.Scheduler.Timezone = tz
	c.Scheduler.location = loc
	return nil
}

// Default returns the built-in configuration covering all five sources.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Crawl: CrawlConfig{
			Timeout: 15 * time.Second,
			Delay:   time.Second,
		},
		Filter: FilterConfig{
			LookbackDays: 7,
			UrgentDays:   7,
			NewsSources:  []string{"네이버뉴스", "중소벤처기업부"},
		},
		Naver: NaverConfig{
			Keywords: []string{"창업 지원사업", "스타트업 정책", "정부 창업 지원"},
			Display:  10,
		},
		History: HistoryConfig{
			Backend: HistoryFile,
			Path:    "data/sent_history.json",
			Limit:   500,
		},
		Scheduler: SchedulerConfig{
			CronExpression: "0 9 * * 1",
			Timezone:       defaultTimezone,
		},
		Notifications: NotificationConfig{
			Limits:     map[string]int{"urgent": -1, "new": 10, "news": 5},
			TitleWidth: 80,
		},
		Sites: []SiteConfig{
			{Name: "K-Startup", Scanner: "kstartup"},
			{Name: "중소벤처기업부", Scanner: "mss"},
			{Name: "창업진흥원", Scanner: "kised"},
			{Name: "기업마당", Scanner: "bizinfo"},
			{Name: "네이버뉴스", Scanner: "navernews"},
		},
	}
}

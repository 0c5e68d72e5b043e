package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel   string           `yaml:"log_level"`
	LogFormat  string           `yaml:"log_format"`
	Schedule   string           `yaml:"schedule"`
	RunOnStart bool             `yaml:"run_on_start"`
	NewsAPI    NewsAPIConfig    `yaml:"newsapi"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Report     ReportConfig     `yaml:"report"`
	Publisher  PublisherConfig  `yaml:"publisher"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type NewsAPIConfig struct {
	APIKey              string        `yaml:"api_key"`
	BaseURL             string        `yaml:"base_url"`
	KeywordGroups       []string      `yaml:"keyword_groups"`
	ArticlesPerQuery    int           `yaml:"articles_per_query"`
	MaxArticles         int           `yaml:"max_articles"`
	DaysBack            int           `yaml:"days_back"`
	ExcludedDomains     []string      `yaml:"excluded_domains"`
	Timeout             time.Duration `yaml:"timeout"`
	Concurrency         int           `yaml:"concurrency"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
}

type SummarizerConfig struct {
	Type         string        `yaml:"type"`
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	MaxTokens    int           `yaml:"max_tokens"`
	MaxRetries   int           `yaml:"max_retries"`
	BaseDelay    time.Duration `yaml:"base_delay"`
	CallInterval time.Duration `yaml:"call_interval"`
}

type ReportConfig struct {
	OutputDir    string `yaml:"output_dir"`
	PagesBaseURL string `yaml:"pages_base_url"`
	SaveJSON     *bool  `yaml:"save_json"`
}

// JSONEnabled reports whether the article dump is written next to the report.
func (r ReportConfig) JSONEnabled() bool {
	return r.SaveJSON == nil || *r.SaveJSON
}

type PublisherConfig struct {
	Types    []string       `yaml:"types"`
	Email    EmailConfig    `yaml:"email"`
	SendGrid SendGridConfig `yaml:"sendgrid"`
	Discord  DiscordConfig  `yaml:"discord"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type SendGridConfig struct {
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	From     string        `yaml:"from"`
	FromName string        `yaml:"from_name"`
	To       []string      `yaml:"to"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// DefaultKeywordGroups are the coating industry searches, one request each.
var DefaultKeywordGroups = []string{
	`"paint booth" OR "spray booth" OR "coating booth"`,
	`"industrial coating" OR "powder coating" OR "surface finishing"`,
	`"automotive painting" OR "automotive coating" OR "paint shop"`,
	`"paint technology" OR "coating technology" OR "painting equipment"`,
	`"paint VOC" OR "coating regulation" OR "paint emission"`,
}

// DefaultExcludedDomains keeps social and video sites out of the results.
var DefaultExcludedDomains = []string{
	"youtube.com", "tiktok.com", "reddit.com", "facebook.com",
	"instagram.com", "twitter.com", "x.com", "pinterest.com",
}

const (
	DefaultNewsAPIURL   = "https://newsapi.org/v2/everything"
	DefaultModel        = "claude-sonnet-4-20250514"
	DefaultPagesBaseURL = "https://your-username.github.io/paint-news-app/"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// loadEnvFiles loads ENV_FILE alone when set, otherwise .env.local and .env.
// godotenv never overrides variables that are already set, so the first file
// wins. Missing files are ignored.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", name, err)
		}
	}
	return nil
}

// envFallback fills dst from the first non-empty variable in keys when the
// file left it empty or held an unresolved ${VAR} reference.
func envFallback(dst *string, keys ...string) {
	if *dst != "" && !envVarRegex.MatchString(*dst) {
		return
	}
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			*dst = v
			return
		}
	}
}

func applyEnv(cfg *Config) {
	envFallback(&cfg.LogLevel, "LOG_LEVEL")
	envFallback(&cfg.NewsAPI.APIKey, "NEWSAPI_KEY")
	envFallback(&cfg.Summarizer.APIKey, "ANTHROPIC_API_KEY")
	envFallback(&cfg.Report.PagesBaseURL, "GITHUB_PAGES_BASE_URL")
	envFallback(&cfg.Publisher.SendGrid.APIKey, "SENDGRID_API_KEY")
	envFallback(&cfg.Publisher.SendGrid.From, "FROM_EMAIL")
	envFallback(&cfg.Publisher.Email.From, "FROM_EMAIL")
	envFallback(&cfg.Publisher.Discord.WebhookURL, "DISCORD_WEBHOOK_URL")

	if notify := strings.TrimSpace(os.Getenv("NOTIFY_EMAIL")); notify != "" {
		to := splitList(notify)
		if len(cfg.Publisher.SendGrid.To) == 0 {
			cfg.Publisher.SendGrid.To = to
		}
		if len(cfg.Publisher.Email.To) == 0 {
			cfg.Publisher.Email.To = to
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// newConfig returns a Config seeded with the numeric defaults. They are set
// before the file is decoded so an explicit zero in the file survives.
func newConfig() Config {
	return Config{
		NewsAPI: NewsAPIConfig{
			ArticlesPerQuery:    10,
			MaxArticles:         20,
			DaysBack:            7,
			Timeout:             30 * time.Second,
			Concurrency:         1,
			SimilarityThreshold: 0.75,
		},
		Summarizer: SummarizerConfig{
			MaxTokens:    1024,
			MaxRetries:   3,
			BaseDelay:    2 * time.Second,
			CallInterval: time.Second,
		},
	}
}

func setDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 8 * * 1"
	}

	n := &cfg.NewsAPI
	if n.BaseURL == "" {
		n.BaseURL = DefaultNewsAPIURL
	}
	if len(n.KeywordGroups) == 0 {
		n.KeywordGroups = append([]string(nil), DefaultKeywordGroups...)
	}
	if n.ExcludedDomains == nil {
		n.ExcludedDomains = append([]string(nil), DefaultExcludedDomains...)
	}

	s := &cfg.Summarizer
	if s.Type == "" {
		s.Type = "anthropic"
	}
	if s.Model == "" {
		s.Model = DefaultModel
	}

	if cfg.Report.OutputDir == "" {
		cfg.Report.OutputDir = "docs"
	}
	if cfg.Report.PagesBaseURL == "" {
		cfg.Report.PagesBaseURL = DefaultPagesBaseURL
	}

	if len(cfg.Publisher.Types) == 0 {
		cfg.Publisher.Types = []string{"sendgrid"}
	}
	if cfg.Publisher.Email.SMTPPort == 0 {
		cfg.Publisher.Email.SMTPPort = 587
	}
	if cfg.Publisher.SendGrid.Timeout == 0 {
		cfg.Publisher.SendGrid.Timeout = 30 * time.Second
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

// ValidateLogLevel reports whether level is one the logger understands.
func ValidateLogLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("config: unsupported log_level %q (supported: debug, info, warn, error)", level)
}

func validate(cfg *Config) error {
	if err := ValidateLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("config: unsupported log_format %q (supported: json, console)", cfg.LogFormat)
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("config: invalid cron schedule %q: %w", cfg.Schedule, err)
	}

	n := cfg.NewsAPI
	for i, g := range n.KeywordGroups {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("config: newsapi.keyword_groups[%d] is empty", i)
		}
	}
	if n.ArticlesPerQuery < 1 || n.ArticlesPerQuery > 100 {
		return fmt.Errorf("config: newsapi.articles_per_query must be between 1 and 100, got %d", n.ArticlesPerQuery)
	}
	if n.MaxArticles < 1 {
		return fmt.Errorf("config: newsapi.max_articles must be positive, got %d", n.MaxArticles)
	}
	if n.DaysBack < 0 {
		return fmt.Errorf("config: newsapi.days_back must not be negative, got %d", n.DaysBack)
	}
	if n.Timeout < 0 {
		return fmt.Errorf("config: newsapi.timeout must not be negative")
	}
	if n.Concurrency < 1 {
		return fmt.Errorf("config: newsapi.concurrency must be positive, got %d", n.Concurrency)
	}
	if n.SimilarityThreshold <= 0 || n.SimilarityThreshold > 1 {
		return fmt.Errorf("config: newsapi.similarity_threshold must be in (0, 1], got %v", n.SimilarityThreshold)
	}

	if cfg.Summarizer.Type != "anthropic" {
		return fmt.Errorf("config: unsupported summarizer type %q (supported: anthropic)", cfg.Summarizer.Type)
	}
	if cfg.Summarizer.MaxTokens < 1 || cfg.Summarizer.MaxRetries < 1 {
		return fmt.Errorf("config: summarizer.max_tokens and summarizer.max_retries must be positive")
	}
	if cfg.Summarizer.BaseDelay < 0 || cfg.Summarizer.CallInterval < 0 {
		return fmt.Errorf("config: summarizer.base_delay and summarizer.call_interval must not be negative")
	}

	for _, t := range cfg.Publisher.Types {
		switch t {
		case "stdout", "email", "sendgrid", "discord":
		default:
			return fmt.Errorf("config: unsupported publisher type %q (supported: stdout, email, sendgrid, discord)", t)
		}
	}
	return nil
}

// Load loads .env files, reads the config file if path is not empty, expands
// environment variables, applies defaults, and validates the configuration.
// Credentials are not required here; the components that use them check.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := newConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

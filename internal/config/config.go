package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	SymbolsFile     string `yaml:"symbols_file" validate:"required"`
	RecipientsFile  string `yaml:"recipients_file"`
	CredentialsFile string `yaml:"credentials_file"`
	Output          struct {
		Dir        string `yaml:"dir" validate:"required"`
		ReportFile string `yaml:"report_file" validate:"required"`
		PlotFile   string `yaml:"plot_file" validate:"required"`
		XLSXFile   string `yaml:"xlsx_file"`
	} `yaml:"output"`
	DataSource struct {
		Provider          string  `yaml:"provider" validate:"oneof=yahoo stooq"`
		BaseURL           string  `yaml:"base_url" validate:"omitempty,url"`
		StartDate         string  `yaml:"start_date" validate:"len=8,numeric"`
		RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
		MaxRetries        int     `yaml:"max_retries" validate:"gte=0,lte=10"`
		Concurrency       int     `yaml:"concurrency" validate:"gte=1,lte=32"`
	} `yaml:"data_source"`
	Batch struct {
		FailFast    bool `yaml:"fail_fast"`
		Concurrency int  `yaml:"concurrency" validate:"gte=1,lte=64"`
	} `yaml:"batch"`
	SMTP struct {
		Host    string `yaml:"host" validate:"required,hostname"`
		Port    int    `yaml:"port" validate:"gt=0,lt=65536"`
		Subject string `yaml:"subject" validate:"required"`
	} `yaml:"smtp"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Schedule struct {
		DailyCron  string `yaml:"daily_cron" validate:"required"`
		UpdateCron string `yaml:"update_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Checkpoint struct {
		StateFile string `yaml:"state_file"`
	} `yaml:"checkpoint"`
	Metrics struct {
		ListenAddr string `yaml:"listen_addr" validate:"omitempty,hostname_port"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy" validate:"omitempty,url"`

	// Filled from SMTP_USER / SMTP_PASSWORD; take precedence over CredentialsFile.
	mailUser     string
	mailPassword string
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Seeded before parsing: zero is a valid setting that disables retries,
	// so it cannot double as "unset".
	cfg.DataSource.MaxRetries = 3

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SYMBOLS_FILE"); v != "" {
		cfg.SymbolsFile = v
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.mailUser = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.mailPassword = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("DAILY_CRON"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("FAIL_FAST"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Batch.FailFast = b
		}
	}

	// Defaults
	if cfg.SymbolsFile == "" {
		cfg.SymbolsFile = "symbols.txt"
	}
	if cfg.RecipientsFile == "" {
		cfg.RecipientsFile = "recipients.txt"
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = "credentials.txt"
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
	if cfg.Output.ReportFile == "" {
		cfg.Output.ReportFile = "performance.txt"
	}
	if cfg.Output.PlotFile == "" {
		cfg.Output.PlotFile = "figures.pdf"
	}
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.DataSource.StartDate == "" {
		cfg.DataSource.StartDate = "19000101"
	}
	if cfg.DataSource.RequestsPerSecond == 0 {
		cfg.DataSource.RequestsPerSecond = 2
	}
	if cfg.DataSource.Concurrency == 0 {
		cfg.DataSource.Concurrency = 4
	}
	if cfg.Batch.Concurrency == 0 {
		cfg.Batch.Concurrency = 4
	}
	if cfg.SMTP.Host == "" {
		cfg.SMTP.Host = "smtp.gmail.com"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.Subject == "" {
		cfg.SMTP.Subject = "Ivy Portfolio Metrics"
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 30 17 * * 1-5"
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// MailCredentials returns the SMTP account and secret, preferring the
// environment over the credentials file.
func (c *Config) MailCredentials() (user, secret string, err error) {
	if c.mailUser != "" && c.mailPassword != "" {
		return c.mailUser, c.mailPassword, nil
	}
	return LoadCredentials(c.CredentialsFile)
}

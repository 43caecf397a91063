// Package config loads and validates settings.yaml, then applies .env files and
// environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config only carries what the commands use.
type Config struct {
	Newsletters      []NewsletterSource `yaml:"NEWSLETTERS"`
	CookiesPath      string             `yaml:"COOKIES_PATH"`
	MaxPostsNum      int                `yaml:"MAX_POSTS_NUM"`
	PageDelay        Duration           `yaml:"PAGE_DELAY"`
	RequestTimeout   Duration           `yaml:"REQUEST_TIMEOUT"`
	MaxCategoryPages int                `yaml:"MAX_CATEGORY_PAGES"`
	Schedule         string             `yaml:"SCHEDULE"`
	SimpleMode       bool               `yaml:"SIMPLE_MODE"`
	ResetOnStart     bool               `yaml:"RESET_ON_START"`
	Database         Database           `yaml:"DATABASE"`
	Concurrency      Concurrency        `yaml:"CONCURRENCY"`
	Proxy            Proxy              `yaml:"PROXY"`
	MetricsAddr      string             `yaml:"METRICS_ADDR"`
	LogLevel         string             `yaml:"LOG_LEVEL"`
	LogFormat        string             `yaml:"LOG_FORMAT"` // text|json|pretty
	LogColor         string             `yaml:"LOG_COLOR"`  // auto|always|never
}

// NewsletterSource is one watched publication. Limit 0 falls back to MAX_POSTS_NUM.
type NewsletterSource struct {
	URL   string `yaml:"url"`
	Limit int    `yaml:"limit"`
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)
	DSN  string `yaml:"dsn"`  // ./substack.db
}

type Concurrency struct {
	Fetch int `yaml:"fetch"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Duration accepts "2s", "500ms" or a bare number of seconds. "off" and "none" map
// to a negative value, meaning disabled.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := parseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "off", "none", "0", "0s":
		return -1, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	var secs float64
	if _, err := fmt.Sscanf(s, "%g", &secs); err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if secs == 0 {
		return -1, nil
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Load reads path, applies .env files and env overrides, then validates.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	return finish(&c)
}

// Default is the configuration used when there is no settings file.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(c *Config) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// loadEnvFiles loads ENV_FILE when set, otherwise .env.local then .env. Values already
// in the environment are never overwritten, so .env.local wins over .env.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SUBSTACK_COOKIES"); v != "" {
		c.CookiesPath = v
	}
	if v := os.Getenv("SUBSTACK_DB"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SUBSTACK_SCHEDULE"); v != "" {
		c.Schedule = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks ranges and fills defaults.
func (c *Config) Validate() error {
	if c.MaxPostsNum < 0 {
		return errors.New("MAX_POSTS_NUM must be >= 0")
	}
	if c.MaxPostsNum == 0 {
		c.MaxPostsNum = 10
	}
	if c.MaxCategoryPages < 0 {
		return errors.New("MAX_CATEGORY_PAGES must be >= 0")
	}
	if c.RequestTimeout < 0 {
		return errors.New("REQUEST_TIMEOUT must be > 0")
	}
	for i, n := range c.Newsletters {
		if strings.TrimSpace(n.URL) == "" {
			return fmt.Errorf("NEWSLETTERS[%d]: url required", i)
		}
		if n.Limit < 0 {
			return fmt.Errorf("NEWSLETTERS[%d]: limit must be >= 0", i)
		}
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./substack.db"
	}
	if c.Concurrency.Fetch <= 0 {
		c.Concurrency.Fetch = 4
	}
	if c.Schedule == "" {
		c.Schedule = "@every 30m"
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

// LimitFor is the post limit of one source.
func (c *Config) LimitFor(n NewsletterSource) int {
	if n.Limit > 0 {
		return n.Limit
	}
	return c.MaxPostsNum
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-substack-watch/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	f := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(f, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return f
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	c, err := config.Load(writeConfig(t, "NEWSLETTERS:\n  - url: example.substack.com\n  - url: other.example\n    limit: 3\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Database.Type != "sqlite" || c.Database.DSN == "" {
		t.Fatalf("db defaults not applied: %+v", c.Database)
	}
	if c.LogFormat == "" || c.LogColor == "" || c.Schedule == "" || c.Concurrency.Fetch <= 0 {
		t.Fatalf("defaults missing: %+v", c)
	}
	if c.PageDelay != 0 || c.RequestTimeout != 0 {
		t.Fatalf("durations should stay unset: %v %v", c.PageDelay, c.RequestTimeout)
	}
	if got := c.LimitFor(c.Newsletters[0]); got != c.MaxPostsNum {
		t.Fatalf("limit fallback = %d", got)
	}
	if got := c.LimitFor(c.Newsletters[1]); got != 3 {
		t.Fatalf("limit = %d", got)
	}

	for _, bad := range []string{
		"MAX_POSTS_NUM: -1\n",
		"MAX_CATEGORY_PAGES: -2\n",
		"NEWSLETTERS:\n  - limit: 2\n",
		"DATABASE:\n  type: postgres\n",
		"PAGE_DELAY: soon\n",
	} {
		if _, err := config.Load(writeConfig(t, bad)); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestConfig_Durations(t *testing.T) {
	cases := map[string]time.Duration{
		"PAGE_DELAY: 500ms\n": 500 * time.Millisecond,
		"PAGE_DELAY: 3\n":     3 * time.Second,
		"PAGE_DELAY: 1.5\n":   1500 * time.Millisecond,
		"PAGE_DELAY: off\n":   -1,
		"PAGE_DELAY: 0\n":     -1,
	}
	for body, want := range cases {
		c, err := config.Load(writeConfig(t, body))
		if err != nil {
			t.Fatalf("load %q: %v", body, err)
		}
		if got := c.PageDelay.Std(); got != want {
			t.Fatalf("%q: page delay = %v, want %v", body, got, want)
		}
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("SUBSTACK_SCHEDULE=@hourly\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("ENV_FILE", envFile)
	unsetEnv(t, "SUBSTACK_SCHEDULE")
	t.Setenv("SUBSTACK_DB", filepath.Join(dir, "x.db"))
	t.Setenv("SUBSTACK_COOKIES", "/tmp/cookies.json")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := config.Load(writeConfig(t, "SCHEDULE: '@every 5m'\nLOG_LEVEL: info\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Schedule != "@hourly" {
		t.Fatalf("schedule from env file = %q", c.Schedule)
	}
	if c.Database.DSN != filepath.Join(dir, "x.db") || c.CookiesPath != "/tmp/cookies.json" || c.LogLevel != "debug" {
		t.Fatalf("env overrides not applied: %+v", c)
	}
}

// unsetEnv removes key for the test; godotenv never overrides a variable that is set,
// even to an empty value.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

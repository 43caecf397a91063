package logx_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"go-substack-watch/internal/logx"
)

func TestPrettyInfo(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "debug", "pretty", "never")
	logx.Infof("hello %s", "world")
	out := buf.String()
	if !strings.Contains(out, "[INFO] hello world") {
		t.Fatalf("expect [INFO] line, got: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "warn", "pretty", "never")
	logx.Infof("should not print")
	logx.Warnf("warn on")
	out := buf.String()
	if strings.Contains(out, "should not print") {
		t.Fatalf("info should be filtered when level=warn")
	}
	if !strings.Contains(out, "[WARN]") {
		t.Fatalf("expect warn label present, got: %q", out)
	}
}

func TestSilent(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "silent", "pretty", "never")
	logx.Errorf("boom")
	if buf.Len() != 0 {
		t.Fatalf("expect no output, got: %q", buf.String())
	}
}

func TestErrorfColorAlways(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer
	logx.InitWriter(&buf, "error", "pretty", "always")
	logx.Errorf("boom %d", 1)
	out := buf.String()
	if !strings.Contains(out, "[ERROR]") || !strings.Contains(out, "\x1b[31m") {
		t.Fatalf("expect coloured error label, got: %q", out)
	}
}

func TestNoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	logx.InitWriter(&buf, "info", "pretty", "always")
	logx.Infof("plain")
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("NO_COLOR should win over always")
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "info", "json", "never")
	logx.Infof("structured")
	if !strings.Contains(buf.String(), `"msg":"structured"`) {
		t.Fatalf("expect json record, got: %q", buf.String())
	}
}

func TestWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logx.NewPrettyHandler(&buf, slog.LevelInfo, "never"))
	logger.With("k", "v").WithGroup("g").Info("hello", "n", 2)
	s := buf.String()
	if !strings.Contains(s, "k=v") || !strings.Contains(s, "g.n=2") {
		t.Fatalf("expect attrs present, got: %q", s)
	}
}

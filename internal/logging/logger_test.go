package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/script-hub/script-hub/internal/config"
)

func TestInitLoggerDefaultsToStdout(t *testing.T) {
	logger, err := InitLogger(config.GlobalConfig{LogLevel: "info"})
	if err != nil {
		t.Fatalf("InitLogger error: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("expected stdout output when no log file is configured")
	}
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %v, want info", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter, got %T", logger.Formatter)
	}
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	if _, err := InitLogger(config.GlobalConfig{LogLevel: "loud"}); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestInitLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hub.log")
	logger, err := InitLogger(config.GlobalConfig{
		LogLevel:    "debug",
		LogFilePath: path,
		LogMaxSize:  1,
	})
	if err != nil {
		t.Fatalf("InitLogger error: %v", err)
	}

	logger.WithFields(BaseFields("test", "config.toml")).Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"action":"test"`) {
		t.Fatalf("log file missing structured fields: %s", data)
	}
}

func TestInitLoggerFallsBackToStdout(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}

	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.Mkdir(blocked, 0o500); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	logger, err := InitLogger(config.GlobalConfig{
		LogLevel:    "info",
		LogFilePath: filepath.Join(blocked, "sub", "hub.log"),
	})
	if err != nil {
		t.Fatalf("InitLogger must not fail on unwritable log path: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("expected stdout fallback for unwritable log directory")
	}
}

func TestRequestFields(t *testing.T) {
	fields := RequestFields("gohome", "https://example.com/install.sh", "HIT", "req-1")
	if fields["tool"] != "gohome" || fields["cache_status"] != "HIT" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if _, ok := fields["request_id"]; !ok {
		t.Fatalf("request_id missing when provided")
	}

	fields = RequestFields("gohome", "https://example.com/install.sh", "MISS", "")
	if _, ok := fields["request_id"]; ok {
		t.Fatalf("request_id must be omitted when empty")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func testConfigPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join("testdata", name)
}

// writeTempConfig drops ad-hoc TOML content into a temp dir so loader tests
// can exercise parse and validation failures without fixture files.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func minimalConfig() string {
	return `
StorageBackend = "memory"

[[Tool]]
Name = "gohome"
Origin = "https://example.com/install.sh"
`
}

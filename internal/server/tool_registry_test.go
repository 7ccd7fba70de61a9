package server

import (
	"testing"
	"time"

	"github.com/script-hub/script-hub/internal/config"
)

func registryConfig() *config.Config {
	return &config.Config{
		Global: config.GlobalConfig{
			ListenPort: 5000,
			CacheTTL:   config.Duration(5 * time.Minute),
		},
		Tools: []config.ToolConfig{
			{Name: "gohome", Origin: "https://raw.example.com/acme/tools/main/gohome.sh"},
			{Name: "Setup", Origin: "https://raw.example.com/acme/tools/main/setup.sh", CacheTTL: config.Duration(time.Minute)},
		},
	}
}

func TestToolRegistryLookup(t *testing.T) {
	registry, err := NewToolRegistry(registryConfig())
	if err != nil {
		t.Fatalf("registry error: %v", err)
	}

	route, ok := registry.Lookup("gohome")
	if !ok {
		t.Fatalf("expected gohome to resolve")
	}
	if route.OriginURL.Host != "raw.example.com" {
		t.Fatalf("origin host mismatch: %s", route.OriginURL.Host)
	}
	if route.CacheTTL != 5*time.Minute {
		t.Fatalf("expected global TTL fallback, got %v", route.CacheTTL)
	}

	if _, ok := registry.Lookup("doesnotexist"); ok {
		t.Fatalf("unknown tool must not resolve")
	}
}

func TestToolRegistryLookupIsCaseInsensitive(t *testing.T) {
	registry, err := NewToolRegistry(registryConfig())
	if err != nil {
		t.Fatalf("registry error: %v", err)
	}

	route, ok := registry.Lookup("  SETUP ")
	if !ok {
		t.Fatalf("expected setup to resolve regardless of case")
	}
	if route.CacheTTL != time.Minute {
		t.Fatalf("expected per-tool TTL override, got %v", route.CacheTTL)
	}
}

func TestToolRegistryRejectsDuplicates(t *testing.T) {
	cfg := registryConfig()
	cfg.Tools = append(cfg.Tools, config.ToolConfig{
		Name:   "GOHOME",
		Origin: "https://raw.example.com/other.sh",
	})
	if _, err := NewToolRegistry(cfg); err == nil {
		t.Fatalf("duplicate tool names must be rejected")
	}
}

func TestToolRegistryNamesSorted(t *testing.T) {
	registry, err := NewToolRegistry(registryConfig())
	if err != nil {
		t.Fatalf("registry error: %v", err)
	}

	names := registry.Names()
	if len(names) != 2 || names[0] != "gohome" || names[1] != "setup" {
		t.Fatalf("unexpected names: %v", names)
	}
}

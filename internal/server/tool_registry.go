package server

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/script-hub/script-hub/internal/config"
)

// ToolRoute bundles a tool's config with its derived attributes (resolved
// origin URL, effective TTL) so the router and proxy never re-parse config.
type ToolRoute struct {
	// Config is a copy of the tool's declaration from config.toml.
	Config config.ToolConfig
	// OriginURL is parsed once at registry build time.
	OriginURL *url.URL
	// CacheTTL is the effective TTL: the tool override, or the global value.
	CacheTTL time.Duration
}

// ToolRegistry resolves inbound tool names to routes. Built once at startup
// and shared read-only by every request.
type ToolRegistry struct {
	routes  map[string]*ToolRoute
	ordered []*ToolRoute
}

// NewToolRegistry builds the name → route map from config.
func NewToolRegistry(cfg *config.Config) (*ToolRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	registry := &ToolRegistry{
		routes: make(map[string]*ToolRoute, len(cfg.Tools)),
	}

	for _, tool := range cfg.Tools {
		name := normalizeToolName(tool.Name)
		if name == "" {
			return nil, fmt.Errorf("invalid name for tool %q", tool.Name)
		}
		if _, exists := registry.routes[name]; exists {
			return nil, fmt.Errorf("duplicate tool name detected for %s", name)
		}

		originURL, err := url.Parse(tool.Origin)
		if err != nil {
			return nil, fmt.Errorf("invalid origin for tool %s: %w", name, err)
		}

		route := &ToolRoute{
			Config:    tool,
			OriginURL: originURL,
			CacheTTL:  cfg.EffectiveCacheTTL(tool),
		}
		registry.routes[name] = route
		registry.ordered = append(registry.ordered, route)
	}

	return registry, nil
}

// Lookup resolves a tool name case-insensitively.
func (r *ToolRegistry) Lookup(name string) (*ToolRoute, bool) {
	if r == nil {
		return nil, false
	}
	route, ok := r.routes[normalizeToolName(name)]
	return route, ok
}

// List returns the registered routes in config order.
func (r *ToolRegistry) List() []ToolRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}
	result := make([]ToolRoute, len(r.ordered))
	for i, route := range r.ordered {
		result[i] = *route
	}
	return result
}

// Names returns the sorted tool names, used for the 404 listing and the
// usage page.
func (r *ToolRegistry) Names() []string {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.ordered))
	for _, route := range r.ordered {
		names = append(names, normalizeToolName(route.Config.Name))
	}
	sort.Strings(names)
	return names
}

func normalizeToolName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

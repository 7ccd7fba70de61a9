package config

import (
	"errors"
	"net/url"
	"strings"
)

var supportedStorageBackends = map[string]struct{}{
	StorageBackendFS:     {},
	StorageBackendMemory: {},
}

// Validate performs semantic checks so an invalid config never starts the
// service.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "must be within 1-65535")
	}
	if _, ok := supportedStorageBackends[g.StorageBackend]; !ok {
		return newFieldError("Global.StorageBackend", "must be fs or memory")
	}
	if g.StorageBackend == StorageBackendFS && g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "must not be empty")
	}
	if g.CacheTTL.DurationValue() <= 0 {
		return newFieldError("Global.CacheTTL", "must be greater than 0")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "must be greater than 0")
	}
	if g.TaskTimeout.DurationValue() < 0 {
		return newFieldError("Global.TaskTimeout", "must not be negative")
	}
	if g.DrainTimeout.DurationValue() <= 0 {
		return newFieldError("Global.DrainTimeout", "must be greater than 0")
	}

	if len(c.Tools) == 0 {
		return errors.New("at least one Tool must be configured")
	}

	seen := map[string]struct{}{}
	for i := range c.Tools {
		tool := &c.Tools[i]
		name := strings.ToLower(strings.TrimSpace(tool.Name))
		if name == "" {
			return newFieldError(toolField(tool.Name, "Name"), "must not be empty")
		}
		if strings.ContainsAny(name, "/ \t") {
			return newFieldError(toolField(tool.Name, "Name"), "must not contain slashes or whitespace")
		}
		if _, dup := seen[name]; dup {
			return newFieldError(toolField(tool.Name, "Name"), "duplicate tool name")
		}
		seen[name] = struct{}{}

		if err := validateOrigin(tool); err != nil {
			return err
		}
		if tool.CacheTTL.DurationValue() < 0 {
			return newFieldError(toolField(tool.Name, "CacheTTL"), "must not be negative")
		}
	}

	return nil
}

func validateOrigin(tool *ToolConfig) error {
	raw := strings.TrimSpace(tool.Origin)
	if raw == "" {
		return newFieldError(toolField(tool.Name, "Origin"), "must not be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return newFieldError(toolField(tool.Name, "Origin"), "must be a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return newFieldError(toolField(tool.Name, "Origin"), "must use http or https")
	}
	if parsed.Host == "" {
		return newFieldError(toolField(tool.Name, "Origin"), "must include a host")
	}
	return nil
}

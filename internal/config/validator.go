package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the config for:
//   - Required fields
//   - Positive engine and upload limits
//   - A known trace policy
//   - Well-formed extensions and timestamp layouts
func Validate(cfg *ServiceConfig) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if cfg.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}
	if cfg.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Sprintf("server.max_upload_mb must be positive, got %d", cfg.Server.MaxUploadMB))
	}
	if len(cfg.Server.AllowedExtensions) == 0 {
		errs = append(errs, "server.allowed_extensions must not be empty")
	}
	for i, ext := range cfg.Server.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Sprintf("server.allowed_extensions[%d]: %q must start with a dot", i, ext))
		}
	}
	for i, origin := range cfg.Server.CORS.AllowedOrigins {
		if origin == "" {
			errs = append(errs, fmt.Sprintf("server.cors.allowed_origins[%d]: must not be empty", i))
		}
	}

	if cfg.Engine.Workers <= 0 {
		errs = append(errs, fmt.Sprintf("engine.workers must be positive, got %d", cfg.Engine.Workers))
	}
	if cfg.Engine.QueueDepth <= 0 {
		errs = append(errs, fmt.Sprintf("engine.queue_depth must be positive, got %d", cfg.Engine.QueueDepth))
	}
	if cfg.Engine.TimeoutMs <= 0 {
		errs = append(errs, fmt.Sprintf("engine.timeout_ms must be positive, got %d", cfg.Engine.TimeoutMs))
	}

	switch cfg.Analysis.TracePolicy {
	case "fail", "skip":
	default:
		errs = append(errs, fmt.Sprintf("analysis.trace_policy must be fail or skip, got %q", cfg.Analysis.TracePolicy))
	}
	for i, layout := range cfg.Analysis.TimestampLayouts {
		if !validLayout(layout) {
			errs = append(errs, fmt.Sprintf("analysis.timestamp_layouts[%d]: %q does not round-trip", i, layout))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// validLayout rejects layouts that cannot parse their own rendering, which
// catches strings with no reference-time fields at all.
func validLayout(layout string) bool {
	if strings.TrimSpace(layout) == "" {
		return false
	}
	ref := time.Date(2019, 11, 23, 17, 48, 39, 0, time.UTC)
	s := ref.Format(layout)
	if s == layout {
		return false
	}
	_, err := time.Parse(layout, s)
	return err == nil
}

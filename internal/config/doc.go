// Package config loads and merges codecoach configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags (passed to [Load] as overrides)
//  2. Environment variables (CODECOACH_PROVIDER, CODECOACH_FAIL_ON,
//     CODECOACH_CACHE_TTL_SECONDS, ...; dots in keys become underscores)
//  3. Config file ($XDG_CONFIG_HOME/codecoach/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write one back, and
// [SetField] to update a single dotted key.
package config

// Package config loads Pulse configuration from JSON or YAML files with a
// PULSE_* environment overlay, and resolves the OS-specific default data
// directory.
package config

// Package config loads, normalizes, and validates mubi1000 configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays MUBI_* environment variables. The
// Config type centralizes every knob the streaming refresh and the CLI need:
// where the movie list and the availability cache live, how the external
// catalog is paced, which cache backend is active, and the projection policy
// applied to cached offers.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical country codes, and clear validation errors.
package config

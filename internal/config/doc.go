// Package config loads pinchctl's TOML configuration, applies defaults and
// validates the result.
package config

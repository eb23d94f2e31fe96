// Package config provides configuration loading and validation for the
// voice bridge service. It handles YAML-based configuration with struct
// validation and environment overrides for service credentials.
package config

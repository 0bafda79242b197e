// Package config loads and validates server configuration from YAML.
//
// Configuration is loaded from a YAML file with ${VAR} environment
// variable substitution, then defaults are applied for any optional
// fields left unset, then the result is validated. Use LoadAndValidate
// for the full pipeline.
package config

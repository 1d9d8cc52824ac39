// Package config loads pipeline definition documents: YAML parsing,
// struct-tag validation, conversion to graph node specs, and resolution
// of run-space axes from inline lists, YAML files, or Starlark scripts.
package config

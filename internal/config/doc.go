// Package config loads and validates application settings from environment
// variables and optional config files, keeping configuration concerns out of
// the business logic.
package config

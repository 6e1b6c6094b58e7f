// Package model defines the shared value types for the kollacli CLI.
//
// This package contains small data structures with no external
// dependencies: deploy modes, name validation, comma-separated list
// parsing, and the exit codes (ExitCode) and error type (CLIError) used
// to translate failures into process exit statuses.
//
// The inventory aggregate itself lives in internal/inventory because it
// owns its own persistence and Ansible rendering.
package model

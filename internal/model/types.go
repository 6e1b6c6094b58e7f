package model

import (
	"fmt"
	"strings"
	"unicode"
)

// DeployMode selects where OpenStack services are deployed.
//
//	local  → everything runs on the host kollacli is installed on
//	remote → services are pushed to remote hosts over SSH
type DeployMode string

const (
	// DeployLocal targets the local host only. At most one host may be
	// present in the inventory in this mode.
	DeployLocal DeployMode = "local"

	// DeployRemote targets remote hosts reached as the admin user over SSH.
	DeployRemote DeployMode = "remote"
)

// String returns the string representation of DeployMode.
func (m DeployMode) String() string {
	return string(m)
}

// IsValid checks whether the DeployMode value is one of the defined modes.
func (m DeployMode) IsValid() bool {
	switch m {
	case DeployLocal, DeployRemote:
		return true
	default:
		return false
	}
}

// IsRemote reports whether the mode deploys over SSH.
func (m DeployMode) IsRemote() bool {
	return m == DeployRemote
}

// ParseDeployMode converts a string to a DeployMode.
// Surrounding whitespace is ignored; matching is case sensitive.
func ParseDeployMode(s string) (DeployMode, error) {
	mode := DeployMode(strings.TrimSpace(s))
	if !mode.IsValid() {
		return "", fmt.Errorf(`invalid deploy mode %q: mode must be either "local" or "remote"`, s)
	}
	return mode, nil
}

// DeployModeFromRemote maps the inventory's remote flag to a DeployMode.
func DeployModeFromRemote(remote bool) DeployMode {
	if remote {
		return DeployRemote
	}
	return DeployLocal
}

// ValidateName checks a host or group name supplied on the command line.
// Names must be non-empty and may not contain whitespace or commas.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	for _, r := range name {
		if unicode.IsSpace(r) {
			return fmt.Errorf("invalid name %q: must not contain whitespace", name)
		}
		if r == ',' {
			return fmt.Errorf("invalid name %q: must not contain commas", name)
		}
	}
	return nil
}

// SplitList parses a comma-separated flag value into its trimmed,
// non-empty elements. An empty or blank input yields nil.
//
//	"a, b,,c" → [a b c]
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ExitCode defines the process exit codes returned by kollacli.
// Scripts can use these to tell an Ansible failure from a bad argument.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitInvalidArgument indicates a command line argument was rejected.
	ExitInvalidArgument ExitCode = 2

	// ExitNotFound indicates a named host, group, service or property
	// does not exist.
	ExitNotFound ExitCode = 3

	// ExitInventoryError indicates the inventory could not be loaded,
	// saved, or the requested change violates an inventory rule.
	ExitInventoryError ExitCode = 4

	// ExitAnsibleError indicates an ansible or ansible-playbook run failed.
	ExitAnsibleError ExitCode = 5

	// ExitHostSetupError indicates SSH key distribution to a host failed.
	ExitHostSetupError ExitCode = 6

	// ExitDockerError indicates the Docker daemon is not accessible or a
	// container operation failed.
	ExitDockerError ExitCode = 7

	// ExitUserCancelled indicates the user declined an interactive prompt.
	ExitUserCancelled ExitCode = 8
)

// CLIError is an error that carries an exit code.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error returns the message, followed by the underlying error if present.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// Errorf is a convenience for NewCLIError with a formatted message.
func Errorf(code ExitCode, format string, args ...interface{}) *CLIError {
	return &CLIError{Code: code, Message: fmt.Sprintf(format, args...)}
}

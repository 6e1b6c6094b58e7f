package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command describes one process invocation.
type Command struct {
	// Name is the program to run, resolved through PATH.
	Name string

	// Args are passed to the program as-is (no shell interpretation).
	Args []string

	// Dir is the working directory; empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the captured outcome of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns stdout followed by stderr, trimmed.
func (r Result) Output() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// Executor runs commands to completion.
type Executor interface {
	// Run executes cmd and returns its captured output. A non-zero exit
	// status is reported as an *ExitError together with the Result.
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExitError reports a process that ran but exited unsuccessfully.
type ExitError struct {
	Command Command
	Result  Result
	Err     error
}

// Error includes the command line and the last stderr line, which is where
// ansible reports the failure reason.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command.Name, e.Result.ExitCode)
	if last := lastLine(e.Result.Stderr); last != "" {
		msg += ": " + last
	} else if last := lastLine(e.Result.Stdout); last != "" {
		msg += ": " + last
	}
	return msg
}

// Unwrap returns the underlying *exec.ExitError.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// OSExecutor runs commands as child processes.
type OSExecutor struct{}

// NewOSExecutor returns an Executor backed by os/exec.
func NewOSExecutor() *OSExecutor {
	return &OSExecutor{}
}

// Run implements Executor.
func (OSExecutor) Run(ctx context.Context, cmd Command) (Result, error) {
	// #nosec G204 -- commands are assembled internally from validated names
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Command: cmd, Result: res, Err: err}
	}
	return res, fmt.Errorf("run %s: %w", cmd.Name, err)
}

// RunCmd runs cmd and returns an error message and the combined output.
// The error message is empty on success. Failures to start the process
// are returned as err; a non-zero exit is reported through errMsg only.
func RunCmd(ctx context.Context, exe Executor, cmd Command) (errMsg string, output string, err error) {
	res, runErr := exe.Run(ctx, cmd)
	var exitErr *ExitError
	switch {
	case runErr == nil:
		return "", res.Output(), nil
	case errors.As(runErr, &exitErr):
		return exitErr.Error(), res.Output(), nil
	default:
		return "", "", runErr
	}
}

// AsUser wraps cmd in "sudo -u user" when user is set.
func AsUser(user string, cmd Command) Command {
	if user == "" {
		return cmd
	}
	args := append([]string{"-u", user, cmd.Name}, cmd.Args...)
	return Command{Name: "sudo", Args: args, Dir: cmd.Dir, Env: cmd.Env}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

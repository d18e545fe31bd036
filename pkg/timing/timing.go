// Package timing runs commands and functions and reports how long they took.
package timing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Result contains the results of a timed command execution
type Result struct {
	Command  string
	Args     []string
	Duration time.Duration
	Stdout   string
	Stderr   string
	ExitCode int
	Error    error
}

// Options configures command execution
type Options struct {
	Dir     string        // Working directory
	Env     []string      // Extra environment, appended to the process environment
	Timeout time.Duration // Command timeout (0 for no timeout)
}

// Run executes a command and measures its wall time
func Run(command string, args []string, opts *Options) *Result {
	return RunContext(context.Background(), command, args, opts)
}

// RunContext is Run bound to ctx; cancelling ctx kills the command
func RunContext(ctx context.Context, command string, args []string, opts *Options) *Result {
	if opts == nil {
		opts = &Options{}
	}

	result := &Result{
		Command: command,
		Args:    args,
	}

	// Create context with timeout if specified
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}

	// Capture stdout and stderr
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}

	return result
}

// Success returns true if the command executed successfully
func (r *Result) Success() bool {
	return r.ExitCode == 0 && r.Error == nil
}

// Err returns nil on success, otherwise an error carrying the exit code and stderr
func (r *Result) Err() error {
	if r.Success() {
		return nil
	}
	if r.Stderr != "" {
		return fmt.Errorf("%s failed (exit code %d): %s", r.Command, r.ExitCode, bytes.TrimSpace([]byte(r.Stderr)))
	}
	return fmt.Errorf("%s failed (exit code %d): %w", r.Command, r.ExitCode, r.Error)
}

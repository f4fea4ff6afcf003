package lib

import (
	"errors"
	"fmt"
)

var ErrNoBackend = errors.New("no backend available")

// ConfigError aborts a run regardless of the fail-on-error policy.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// CompileError is a per-file failure of a backend. ExitCode is only set for
// the external process backend.
type CompileError struct {
	Input    string
	ExitCode int
	Output   []string
	Err      error
}

func (e *CompileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compiling %s: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("compiling %s: result returned as not 0. Result: %d", e.Input, e.ExitCode)
}

func (e *CompileError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

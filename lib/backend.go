package lib

import (
	"context"
	"fmt"
	"os/exec"
)

type BackendKind int

const (
	BackendExternal BackendKind = iota
	BackendEmbedded BackendKind = iota
)

func (k BackendKind) String() string {
	switch k {
	case BackendEmbedded:
		return "embedded"
	default:
		return "external"
	}
}

type InvocationResult struct {
	ExitCode int
	Output   []string
	wrote    bool
	embedded bool
}

// Succeeded is a zero exit code for a process, or non-empty output for the
// embedded compiler.
func (r *InvocationResult) Succeeded() bool {
	if r.embedded {
		return r.wrote
	}
	return r.ExitCode == 0
}

// backend compiles one input file to one output file. A non-nil error is
// either a *ConfigError or a *CompileError.
type backend interface {
	Kind() BackendKind
	Compile(ctx context.Context, fp FilePair) (*InvocationResult, error)
}

type lookPathFunc func(string) (string, error)

// selectBackend runs once per task. The external executable wins when it
// resolves; the embedded compiler is only used as a fallback.
func selectBackend(c Config, lookPath lookPathFunc, procs processRunner, comp StylesheetCompiler) (backend, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if path, err := lookPath(c.Executable); err == nil {
		if procs == nil {
			procs = execRunner{}
		}
		return &externalBackend{cfg: c, path: path, procs: procs}, nil
	}
	if comp != nil {
		be, err := newEmbeddedBackend(c, comp)
		if err != nil {
			return nil, err
		}
		return be, nil
	}
	return nil, &ConfigError{
		Msg: fmt.Sprintf("%s not found; install sass or build with cgo for the embedded compiler", c.Executable),
		Err: ErrNoBackend,
	}
}

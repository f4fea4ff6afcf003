package lib

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// processRunner runs a program to completion and reports its exit status
// and combined output. err is only set when the program could not be run.
type processRunner interface {
	Run(ctx context.Context, name string, args []string) (*InvocationResult, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string) (*InvocationResult, error) {
	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	res := &InvocationResult{Output: splitLines(buf.Bytes())}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return nil, err
	}
	return res, nil
}

func splitLines(b []byte) []string {
	var ret []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		ret = append(ret, sc.Text())
	}
	return ret
}

type externalBackend struct {
	cfg   Config
	path  string
	procs processRunner
}

func (b *externalBackend) Kind() BackendKind { return BackendExternal }

func (b *externalBackend) Compile(ctx context.Context, fp FilePair) (*InvocationResult, error) {
	if fp.sameFile() {
		return nil, &ConfigError{Msg: fp.infile.Name(), Err: errSameFile}
	}
	args := b.cfg.ExternalArgs(fp.infile.Name(), fp.outfile.Name())
	loggerFrom(ctx).Info("Executing: " + b.cfg.Executable + " " + strings.Join(args, " "))

	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}
	res, err := b.procs.Run(ctx, b.path, args)
	if err != nil {
		return nil, &CompileError{Input: fp.infile.Name(), Err: err}
	}
	if !res.Succeeded() {
		return res, &CompileError{
			Input:    fp.infile.Name(),
			ExitCode: res.ExitCode,
			Output:   res.Output,
		}
	}
	return res, nil
}

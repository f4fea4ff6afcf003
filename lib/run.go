package lib

import (
	"context"
	"errors"
	"log/slog"
)

type Runner struct {
	cfg Config
	log *slog.Logger

	lookPath lookPathFunc
	procs    processRunner
	compiler StylesheetCompiler
}

func NewRunner(c Config, log *slog.Logger) *Runner {
	return &Runner{cfg: c, log: log, compiler: embeddedCompiler}
}

// Stats counts per-file outcomes of one run. Empty counts embedded
// compilations that produced no output; they are neither failures nor
// successes and write no file.
type Stats struct {
	Skipped   int
	Filtered  int
	Succeeded int
	Empty     int
	Failed    int
}

// Run compiles every selected file of every file set, in order. It stops at
// the first configuration error, and at the first compile error when
// FailOnError is set.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var st Stats
	if r.log != nil {
		ctx = withLogger(ctx, r.log)
	}
	log := loggerFrom(ctx)

	if err := r.cfg.check(); err != nil {
		return st, err
	}
	be, err := selectBackend(r.cfg, r.lookPath, r.procs, r.compiler)
	if err != nil {
		return st, err
	}
	log.Debug("backend selected", "backend", be.Kind().String())

	for _, fs := range r.cfg.FileSets {
		entries, err := fs.Entries()
		if err != nil {
			return st, &ConfigError{Msg: "reading fileset " + fs.Dir, Err: err}
		}
		for _, e := range entries {
			if !e.isStylesheet() {
				log.Debug("Ignoring " + e.RelativePath)
				st.Skipped++
				continue
			}
			if r.cfg.ExtFilter != "" && r.cfg.ExtFilter != e.Ext {
				st.Filtered++
				continue
			}
			if err := ctx.Err(); err != nil {
				return st, err
			}
			res, err := r.compile(ctx, be, newFilePair(r.cfg, fs, e))
			if err == nil {
				if res.Succeeded() {
					st.Succeeded++
				} else {
					st.Empty++
				}
				continue
			}
			st.Failed++
			var cfgErr *ConfigError
			if errors.As(err, &cfgErr) || ctx.Err() != nil || r.cfg.FailOnError {
				return st, err
			}
			log.Error(err.Error())
		}
	}
	return st, nil
}

func (r *Runner) compile(ctx context.Context, be backend, fp FilePair) (*InvocationResult, error) {
	res, err := be.Compile(ctx, fp)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			for _, line := range ce.Output {
				loggerFrom(ctx).Info(line)
			}
		}
		return nil, err
	}
	for _, line := range res.Output {
		loggerFrom(ctx).Debug(line)
	}
	return res, nil
}

package lib

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type Options struct {
	cfg    Config
	parsed bool

	configFile string
	executable string
	extfilter  string
	flags      string
	newext     string
	outputpath string
	encoding   string
	failonerr  bool
	keepsub    bool
	removeold  bool
	timeout    time.Duration

	check        bool
	force        bool
	nocache      bool
	trace        bool
	unixnewlines bool
	paths        []string
	style        styleSetting

	includes []string
	excludes []string

	watch     bool
	verbose   bool
	logLevel  string
	logFormat string

	logOut io.Writer
}

func ParseOpts() (*Options, error) {
	return parseArgs(os.Args[1:], os.Stdout)
}

func parseArgs(args []string, out io.Writer) (*Options, error) {
	opts := Options{logOut: os.Stderr}
	cmd := makeCommand(&opts)
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(out)
	err := cmd.Execute()
	if err != nil {
		return nil, err
	}
	return &opts, nil
}

func (o *Options) Config() Config { return o.cfg }

func (o *Options) Run() error {
	if !o.parsed {
		// --help or --version
		return nil
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	level := o.logLevel
	if o.verbose {
		level = "debug"
	}
	log := newLogger(level, o.logFormat, o.logOut)

	runner := NewRunner(o.cfg, log)
	if o.watch {
		return runner.Watch(ctx)
	}
	st, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	log.Debug("done", "succeeded", st.Succeeded, "empty", st.Empty, "failed", st.Failed,
		"skipped", st.Skipped, "filtered", st.Filtered)
	return nil
}

func (o *Options) resolve(fl *pflag.FlagSet, dirs []string) error {
	c := DefaultConfig()

	if o.configFile != "" {
		bf, err := loadBuildFile(o.configFile)
		if err != nil {
			return err
		}
		if err := bf.apply(&c, filepath.Dir(o.configFile)); err != nil {
			return err
		}
	}

	if fl.Changed("executable") {
		c.Executable = o.executable
	}
	if fl.Changed("failonerror") {
		c.FailOnError = o.failonerr
	}
	if fl.Changed("extfilter") {
		c.ExtFilter = trimExt(o.extfilter)
	}
	if fl.Changed("flags") {
		c.ExtraFlags = splitFlags(o.flags)
	}
	if fl.Changed("keepsubdirectories") {
		c.KeepSubdirectories = o.keepsub
	}
	if fl.Changed("removeoldext") {
		c.RemoveOldExt = o.removeold
	}
	if fl.Changed("newext") {
		c.NewExt = trimExt(o.newext)
	}
	if fl.Changed("outputpath") {
		c.OutputPath = trimOutputPath(o.outputpath)
	}
	if fl.Changed("encoding") {
		c.Encoding = strings.TrimSpace(o.encoding)
		c.EncodingSet = true
	}
	if fl.Changed("timeout") {
		c.Timeout = o.timeout
	}
	if o.style.set {
		c.Style, c.StyleSet = o.style.style, true
	}
	for name, dst := range map[string]*bool{
		"check":        &c.Check,
		"force":        &c.Force,
		"nocache":      &c.NoCache,
		"trace":        &c.Trace,
		"unixnewlines": &c.UnixNewlines,
	} {
		if fl.Changed(name) {
			v, _ := fl.GetBool(name)
			*dst = v
		}
	}
	c.LoadPaths = append(c.LoadPaths, o.paths...)

	for _, d := range dirs {
		c.FileSets = append(c.FileSets, FileSet{
			Dir:      d,
			Includes: o.includes,
			Excludes: o.excludes,
		})
	}

	if err := c.check(); err != nil {
		return err
	}
	o.cfg = c
	o.parsed = true
	return nil
}

func makeCommand(opts *Options) *cobra.Command {
	ret := &cobra.Command{
		Use:           name + " [flags] [DIR...]",
		Short:         "Compile .scss and .sass files to CSS",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd.Flags(), args)
		},
	}
	fl := ret.Flags()
	fl.StringVarP(&opts.configFile, "config", "c", "", "build file (.hcl, .yaml, .yml or .toml)")
	fl.StringVar(&opts.executable, "executable", "sass", "sass executable name or path")
	fl.BoolVar(&opts.failonerr, "failonerror", true, "abort the run on the first compile failure")
	fl.StringVar(&opts.extfilter, "extfilter", "", "only compile files with this extension")
	fl.StringVar(&opts.flags, "flags", "", "extra flags passed to the sass executable")
	fl.BoolVar(&opts.keepsub, "keepsubdirectories", true, "mirror source subdirectories in the output")
	fl.BoolVar(&opts.removeold, "removeoldext", true, "drop the source extension from output names")
	fl.StringVar(&opts.newext, "newext", "css", "extension of output files")
	fl.StringVar(&opts.outputpath, "outputpath", "", "output root directory (default: each fileset's directory)")
	fl.StringVar(&opts.encoding, "encoding", "utf-8", "source encoding")
	fl.DurationVar(&opts.timeout, "timeout", 0, "limit on each sass invocation (0 for none)")

	fl.Var(styleFlag{s: &opts.style}, "style", "output style: nested, compact, compressed or expanded")
	for _, sw := range []struct {
		flag  string
		style Style
	}{
		{"compact", StyleCompact},
		{"compressed", StyleCompressed},
		{"expand", StyleExpanded},
	} {
		f := fl.VarPF(styleSwitch{s: &opts.style, style: sw.style}, sw.flag, "", "shorthand for --style="+sw.style.String())
		f.NoOptDefVal = "true"
	}

	fl.BoolVar(&opts.check, "check", false, "pass --check to sass")
	fl.BoolVar(&opts.force, "force", false, "pass --force to sass")
	fl.BoolVar(&opts.nocache, "nocache", false, "pass --no-cache to sass")
	fl.BoolVar(&opts.trace, "trace", false, "pass --trace to sass")
	fl.BoolVar(&opts.unixnewlines, "unixnewlines", false, "pass --unix-newlines to sass")
	fl.StringArrayVar(&opts.paths, "path", nil, "load path passed to sass (repeatable)")

	fl.StringArrayVar(&opts.includes, "include", nil, "glob of files to include in DIR filesets (repeatable)")
	fl.StringArrayVar(&opts.excludes, "exclude", nil, "glob of files to exclude from DIR filesets (repeatable)")

	fl.BoolVarP(&opts.watch, "watch", "w", false, "recompile when sources change")
	fl.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	fl.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fl.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	return ret
}

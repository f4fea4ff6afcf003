package lib

import (
	"os"
	"strings"
	"time"
)

// Config is assembled once before a run and passed by value afterwards.
type Config struct {
	Style       Style
	StyleSet    bool
	Executable  string
	ExtFilter   string
	FailOnError bool
	ExtraFlags  []string

	KeepSubdirectories bool
	RemoveOldExt       bool
	NewExt             string
	OutputPath         string

	Encoding    string
	EncodingSet bool

	// Forwarded to the external executable only.
	Check        bool
	Force        bool
	NoCache      bool
	Trace        bool
	UnixNewlines bool
	LoadPaths    []string

	FileSets []FileSet
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Style:              StyleNested,
		Executable:         "sass",
		FailOnError:        true,
		KeepSubdirectories: true,
		RemoveOldExt:       true,
		NewExt:             "css",
		Encoding:           "utf-8",
	}
}

// Flag is one option passed to the external executable. An empty Value
// means the option is a bare switch.
type Flag struct {
	Name  string
	Value string
}

func (f Flag) args() []string {
	if f.Value == "" {
		return []string{f.Name}
	}
	return []string{f.Name, f.Value}
}

// Flags lists the options forwarded to the external executable, in a fixed
// order. Raw extra flags are not included.
func (c Config) Flags() []Flag {
	var ret []Flag
	if c.StyleSet {
		ret = append(ret, Flag{Name: "--style", Value: c.Style.String()})
	}
	if c.EncodingSet && c.Encoding != "" {
		ret = append(ret, Flag{Name: "--default-encoding", Value: c.Encoding})
	}
	if c.Check {
		ret = append(ret, Flag{Name: "--check"})
	}
	if c.Force {
		ret = append(ret, Flag{Name: "--force"})
	}
	if c.NoCache {
		ret = append(ret, Flag{Name: "--no-cache"})
	}
	for _, p := range c.LoadPaths {
		ret = append(ret, Flag{Name: "--load-path", Value: p})
	}
	if c.Trace {
		ret = append(ret, Flag{Name: "--trace"})
	}
	if c.UnixNewlines {
		ret = append(ret, Flag{Name: "--unix-newlines"})
	}
	return ret
}

// ExternalArgs is the argument vector after the executable name:
// [flags] inputFile outputFile.
func (c Config) ExternalArgs(infile, outfile string) []string {
	var ret []string
	for _, f := range c.Flags() {
		ret = append(ret, f.args()...)
	}
	ret = append(ret, c.ExtraFlags...)
	ret = append(ret, infile, outfile)
	return ret
}

func (c Config) check() error {
	if c.Executable == "" {
		return configErrorf("'executable' must be defined")
	}
	if len(c.FileSets) == 0 {
		return configErrorf("missing a fileset: pass a directory or declare one in the build file")
	}
	for _, fs := range c.FileSets {
		if err := fs.check(); err != nil {
			return err
		}
	}
	return nil
}

func trimExt(s string) string {
	return strings.Trim(s, " .")
}

func trimOutputPath(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 1 {
		s = strings.TrimRight(s, string(os.PathSeparator))
	}
	return s
}

func splitFlags(s string) []string {
	return strings.Fields(s)
}

package lib

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// buildFile is the declarative form of a task. Every key is optional; unset
// keys leave the defaults alone.
type buildFile struct {
	Executable         *string `hcl:"executable,optional" yaml:"executable" toml:"executable"`
	FailOnError        *bool   `hcl:"failonerror,optional" yaml:"failonerror" toml:"failonerror"`
	ExtFilter          *string `hcl:"extfilter,optional" yaml:"extfilter" toml:"extfilter"`
	Flags              *string `hcl:"flags,optional" yaml:"flags" toml:"flags"`
	KeepSubdirectories *bool   `hcl:"keepsubdirectories,optional" yaml:"keepsubdirectories" toml:"keepsubdirectories"`
	RemoveOldExt       *bool   `hcl:"removeoldext,optional" yaml:"removeoldext" toml:"removeoldext"`
	NewExt             *string `hcl:"newext,optional" yaml:"newext" toml:"newext"`
	OutputPath         *string `hcl:"outputpath,optional" yaml:"outputpath" toml:"outputpath"`
	Encoding           *string `hcl:"encoding,optional" yaml:"encoding" toml:"encoding"`
	Timeout            *string `hcl:"timeout,optional" yaml:"timeout" toml:"timeout"`

	Style      *string `hcl:"style,optional" yaml:"style" toml:"style"`
	Compact    *bool   `hcl:"compact,optional" yaml:"compact" toml:"compact"`
	Compressed *bool   `hcl:"compressed,optional" yaml:"compressed" toml:"compressed"`
	Expand     *bool   `hcl:"expand,optional" yaml:"expand" toml:"expand"`

	Check        *bool    `hcl:"check,optional" yaml:"check" toml:"check"`
	Force        *bool    `hcl:"force,optional" yaml:"force" toml:"force"`
	NoCache      *bool    `hcl:"nocache,optional" yaml:"nocache" toml:"nocache"`
	Trace        *bool    `hcl:"trace,optional" yaml:"trace" toml:"trace"`
	UnixNewlines *bool    `hcl:"unixnewlines,optional" yaml:"unixnewlines" toml:"unixnewlines"`
	Path         []string `hcl:"path,optional" yaml:"path" toml:"path"`

	FileSets []fileSetBlock `hcl:"fileset,block" yaml:"filesets" toml:"fileset"`
}

type fileSetBlock struct {
	Dir     string   `hcl:"dir,attr" yaml:"dir" toml:"dir"`
	Include []string `hcl:"include,optional" yaml:"include" toml:"include"`
	Exclude []string `hcl:"exclude,optional" yaml:"exclude" toml:"exclude"`
}

func loadBuildFile(path string) (*buildFile, error) {
	var ret buildFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		f, diags := hclparse.NewParser().ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, &ConfigError{Msg: "parsing " + path, Err: diags}
		}
		if diags := gohcl.DecodeBody(f.Body, nil, &ret); diags.HasErrors() {
			return nil, &ConfigError{Msg: "decoding " + path, Err: diags}
		}
	case ".yaml", ".yml":
		dat, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Msg: "reading " + path, Err: err}
		}
		if err := yaml.Unmarshal(dat, &ret); err != nil {
			return nil, &ConfigError{Msg: "parsing " + path, Err: err}
		}
	case ".toml":
		dat, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Msg: "reading " + path, Err: err}
		}
		if err := toml.Unmarshal(dat, &ret); err != nil {
			return nil, &ConfigError{Msg: "parsing " + path, Err: err}
		}
	default:
		return nil, configErrorf("unsupported build file %s: want .hcl, .yaml, .yml or .toml", path)
	}
	return &ret, nil
}

func resolveAgainst(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// apply overlays the file onto c. Relative paths are taken relative to base,
// the directory holding the build file. Style shorthands are applied in the
// order compact, compressed, expand, and an explicit style wins over all of
// them.
func (b *buildFile) apply(c *Config, base string) error {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	setString(&c.Executable, b.Executable)
	setBool(&c.FailOnError, b.FailOnError)
	if b.ExtFilter != nil {
		c.ExtFilter = trimExt(*b.ExtFilter)
	}
	if b.Flags != nil {
		c.ExtraFlags = splitFlags(*b.Flags)
	}
	setBool(&c.KeepSubdirectories, b.KeepSubdirectories)
	setBool(&c.RemoveOldExt, b.RemoveOldExt)
	if b.NewExt != nil {
		c.NewExt = trimExt(*b.NewExt)
	}
	if b.OutputPath != nil {
		c.OutputPath = resolveAgainst(base, trimOutputPath(*b.OutputPath))
	}
	if b.Encoding != nil {
		c.Encoding = strings.TrimSpace(*b.Encoding)
		c.EncodingSet = true
	}
	if b.Timeout != nil {
		d, err := time.ParseDuration(*b.Timeout)
		if err != nil {
			return &ConfigError{Msg: "bad timeout", Err: err}
		}
		c.Timeout = d
	}

	for _, sw := range []struct {
		on    *bool
		style Style
	}{
		{b.Compact, StyleCompact},
		{b.Compressed, StyleCompressed},
		{b.Expand, StyleExpanded},
	} {
		if sw.on != nil && *sw.on {
			c.Style, c.StyleSet = sw.style, true
		}
	}
	if b.Style != nil {
		st, err := ParseStyle(*b.Style)
		if err != nil {
			return err
		}
		c.Style, c.StyleSet = st, true
	}

	setBool(&c.Check, b.Check)
	setBool(&c.Force, b.Force)
	setBool(&c.NoCache, b.NoCache)
	setBool(&c.Trace, b.Trace)
	setBool(&c.UnixNewlines, b.UnixNewlines)
	c.LoadPaths = append(c.LoadPaths, b.Path...)

	for _, fs := range b.FileSets {
		c.FileSets = append(c.FileSets, FileSet{
			Dir:      resolveAgainst(base, fs.Dir),
			Includes: fs.Include,
			Excludes: fs.Exclude,
		})
	}
	return nil
}

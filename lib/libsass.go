//go:build cgo

package lib

import (
	"bytes"
	"path/filepath"

	libsass "github.com/wellington/go-libsass"
)

type libsassCompiler struct{}

func (libsassCompiler) Compile(src []byte, opts CompileOptions) ([]byte, error) {
	var buf bytes.Buffer
	syntax := libsass.SCSSSyntax
	if opts.Syntax == SyntaxIndented {
		syntax = libsass.SassSyntax
	}
	// libsass.Path would make libsass reread the file; the source here is
	// already decoded, so only the directory is passed for imports.
	comp, err := libsass.New(&buf, bytes.NewReader(src),
		libsass.IncludePaths([]string{filepath.Dir(opts.Path)}),
		libsass.OutputStyle(libsassStyle(opts.Style)),
		libsass.WithSyntax(syntax),
	)
	if err != nil {
		return nil, err
	}
	if err := comp.Run(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func libsassStyle(s Style) int {
	switch s {
	case StyleCompact:
		return libsass.COMPACT_STYLE
	case StyleCompressed:
		return libsass.COMPRESSED_STYLE
	case StyleExpanded:
		return libsass.EXPANDED_STYLE
	default:
		return libsass.NESTED_STYLE
	}
}

func init() {
	embeddedCompiler = libsassCompiler{}
}

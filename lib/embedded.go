package lib

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

type Syntax int

const (
	SyntaxSCSS     Syntax = iota
	SyntaxIndented Syntax = iota
)

type CompileOptions struct {
	Path   string
	Style  Style
	Syntax Syntax
}

// StylesheetCompiler compiles UTF-8 source text to CSS in process.
type StylesheetCompiler interface {
	Compile(src []byte, opts CompileOptions) ([]byte, error)
}

// embeddedCompiler is the compiler linked into this binary, if any.
var embeddedCompiler StylesheetCompiler

type embeddedBackend struct {
	style Style
	dec   *encoding.Decoder
	comp  StylesheetCompiler
}

func newEmbeddedBackend(c Config, comp StylesheetCompiler) (*embeddedBackend, error) {
	ret := &embeddedBackend{style: c.Style, comp: comp}
	if !isUTF8(c.Encoding) {
		enc, err := htmlindex.Get(c.Encoding)
		if err != nil {
			return nil, &ConfigError{Msg: fmt.Sprintf("unsupported encoding %q", c.Encoding), Err: err}
		}
		ret.dec = enc.NewDecoder()
	}
	return ret, nil
}

func isUTF8(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

func (b *embeddedBackend) Kind() BackendKind { return BackendEmbedded }

func (b *embeddedBackend) Compile(ctx context.Context, fp FilePair) (*InvocationResult, error) {
	if fp.sameFile() {
		return nil, &ConfigError{Msg: fp.infile.Name(), Err: errSameFile}
	}
	log := loggerFrom(ctx)
	log.Info(fmt.Sprintf("Compiling '%s' via embedded compiler", fp.infile.Name()))

	src, err := fp.infile.Read()
	if err != nil {
		return nil, &CompileError{Input: fp.infile.Name(), Err: err}
	}
	if b.dec != nil {
		src, err = b.dec.Bytes(src)
		if err != nil {
			return nil, &CompileError{Input: fp.infile.Name(), Err: err}
		}
	}

	opts := CompileOptions{Path: fp.infile.Name(), Style: b.style}
	if strings.EqualFold(fp.entry.Ext, "sass") {
		opts.Syntax = SyntaxIndented
	}
	out, err := b.comp.Compile(src, opts)
	if err != nil {
		return nil, &CompileError{Input: fp.infile.Name(), Err: err}
	}

	res := &InvocationResult{embedded: true}
	if len(out) == 0 {
		log.Warn("Compilation resulted in empty string", "file", fp.infile.Name())
		return res, nil
	}
	if err := fp.outfile.Write(out); err != nil {
		return nil, &CompileError{Input: fp.infile.Name(), Err: err}
	}
	res.wrote = true
	log.Debug(fmt.Sprintf("'%s' compiled and written to '%s'", fp.infile.Name(), fp.outfile.Name()))
	return res, nil
}

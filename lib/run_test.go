package lib

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcs struct {
	calls [][]string
	fail  map[string]int
}

func (f *fakeProcs) Run(ctx context.Context, name string, args []string) (*InvocationResult, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	in := args[len(args)-2]
	if code, ok := f.fail[filepath.Base(in)]; ok {
		return &InvocationResult{ExitCode: code, Output: []string{"Error: broken " + filepath.Base(in)}}, nil
	}
	return &InvocationResult{}, nil
}

func (f *fakeProcs) inputs() []string {
	var ret []string
	for _, c := range f.calls {
		ret = append(ret, filepath.Base(c[len(c)-2]))
	}
	return ret
}

type fakeCompiler struct {
	out  map[string]string
	err  map[string]error
	seen []CompileOptions
	srcs []string
}

func (f *fakeCompiler) Compile(src []byte, opts CompileOptions) ([]byte, error) {
	f.seen = append(f.seen, opts)
	f.srcs = append(f.srcs, string(src))
	base := filepath.Base(opts.Path)
	if err, ok := f.err[base]; ok {
		return nil, err
	}
	if out, ok := f.out[base]; ok {
		return []byte(out), nil
	}
	return []byte("/* " + base + " */"), nil
}

func foundSass(string) (string, error) { return "/usr/local/bin/sass", nil }

func missingSass(string) (string, error) { return "", errors.New("not found") }

type testRun struct {
	runner *Runner
	procs  *fakeProcs
	logs   *bytes.Buffer
}

func newTestRun(c Config) *testRun {
	var logs bytes.Buffer
	procs := &fakeProcs{fail: map[string]int{}}
	r := NewRunner(c, newLogger("debug", "text", &logs))
	r.lookPath = foundSass
	r.procs = procs
	r.compiler = nil
	return &testRun{runner: r, procs: procs, logs: &logs}
}

func (tr *testRun) count(level string) int {
	return strings.Count(tr.logs.String(), "level="+level)
}

func threeFiles(t *testing.T) string {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.scss": "a{}",
		"b.scss": "b{}",
		"c.scss": "c{}",
	})
	return dir
}

func TestRunContinuesWithoutFailOnError(t *testing.T) {
	c := DefaultConfig()
	c.FailOnError = false
	c.FileSets = []FileSet{{Dir: threeFiles(t)}}

	tr := newTestRun(c)
	tr.procs.fail["b.scss"] = 1

	st, err := tr.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.scss", "b.scss", "c.scss"}, tr.procs.inputs())
	assert.Equal(t, Stats{Succeeded: 2, Failed: 1}, st)
	assert.Equal(t, 1, tr.count("ERROR"))
	assert.Contains(t, tr.logs.String(), "Error: broken b.scss")
}

func TestRunAbortsWithFailOnError(t *testing.T) {
	c := DefaultConfig()
	c.FileSets = []FileSet{{Dir: threeFiles(t)}}

	tr := newTestRun(c)
	tr.procs.fail["b.scss"] = 1

	_, err := tr.runner.Run(context.Background())
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.ExitCode)
	assert.Contains(t, ce.Error(), "Result: 1")
	assert.Equal(t, []string{"a.scss", "b.scss"}, tr.procs.inputs())
}

func TestRunCommandLine(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"sub/site.scss": ""})

	c := DefaultConfig()
	c.Style, c.StyleSet = StyleExpanded, true
	c.ExtraFlags = []string{"--quiet"}
	c.OutputPath = filepath.Join(dir, "out")
	c.FileSets = []FileSet{{Dir: dir}}

	tr := newTestRun(c)
	_, err := tr.runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, tr.procs.calls, 1)
	assert.Equal(t, []string{
		"/usr/local/bin/sass",
		"--style", "expanded",
		"--quiet",
		filepath.Join(dir, "sub", "site.scss"),
		filepath.Join(dir, "out", "sub", "site.css"),
	}, tr.procs.calls[0])
	assert.Contains(t, tr.logs.String(), "Executing: sass --style expanded --quiet")
}

func TestRunSelection(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"bar.sass":   "",
		"bar.scss":   "",
		"notes.txt":  "",
		"upper.SCSS": "",
	})

	c := DefaultConfig()
	c.FileSets = []FileSet{{Dir: dir}}
	tr := newTestRun(c)
	st, err := tr.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bar.sass", "bar.scss", "upper.SCSS"}, tr.procs.inputs())
	assert.Equal(t, 1, st.Skipped)
	assert.Contains(t, tr.logs.String(), "Ignoring notes.txt")

	c.ExtFilter = "scss"
	tr = newTestRun(c)
	st, err = tr.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bar.scss"}, tr.procs.inputs())
	assert.Equal(t, Stats{Skipped: 1, Filtered: 2, Succeeded: 1}, st)
	assert.NotContains(t, tr.logs.String(), "Ignoring bar.sass")
}

func TestRunSameInputAndOutputIsAlwaysFatal(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.scss": "", "b.scss": ""})

	c := DefaultConfig()
	c.FailOnError = false
	c.NewExt = "scss"
	c.FileSets = []FileSet{{Dir: dir}}

	tr := newTestRun(c)
	_, err := tr.runner.Run(context.Background())
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, errSameFile)
	assert.Empty(t, tr.procs.calls)
}

func TestRunMultipleFileSets(t *testing.T) {
	one, two := threeFiles(t), threeFiles(t)
	c := DefaultConfig()
	c.FailOnError = false
	c.FileSets = []FileSet{{Dir: one}, {Dir: two, Includes: []string{"c.*"}}}

	tr := newTestRun(c)
	tr.procs.fail["a.scss"] = 2
	st, err := tr.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.scss", "b.scss", "c.scss", "c.scss"}, tr.procs.inputs())
	assert.Equal(t, 3, st.Succeeded)
	assert.Equal(t, filepath.Join(two, "c.css"), tr.procs.calls[3][len(tr.procs.calls[3])-1])
}

func TestRunNoBackend(t *testing.T) {
	c := DefaultConfig()
	c.FileSets = []FileSet{{Dir: threeFiles(t)}}

	tr := newTestRun(c)
	tr.runner.lookPath = missingSass
	_, err := tr.runner.Run(context.Background())
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, ErrNoBackend)
	assert.Empty(t, tr.procs.calls)
}

func TestRunMissingFileSets(t *testing.T) {
	tr := newTestRun(DefaultConfig())
	_, err := tr.runner.Run(context.Background())
	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestRunCancelled(t *testing.T) {
	c := DefaultConfig()
	c.FailOnError = false
	c.FileSets = []FileSet{{Dir: threeFiles(t)}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := newTestRun(c)
	_, err := tr.runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tr.procs.calls)
}

func TestSelectBackendPrefersExecutable(t *testing.T) {
	comp := &fakeCompiler{}
	be, err := selectBackend(DefaultConfig(), foundSass, &fakeProcs{}, comp)
	require.NoError(t, err)
	assert.Equal(t, BackendExternal, be.Kind())

	be, err = selectBackend(DefaultConfig(), missingSass, &fakeProcs{}, comp)
	require.NoError(t, err)
	assert.Equal(t, BackendEmbedded, be.Kind())
}

func newEmbeddedRun(c Config, comp *fakeCompiler) *testRun {
	tr := newTestRun(c)
	tr.runner.lookPath = missingSass
	tr.runner.compiler = comp
	return tr
}

func TestRunEmbedded(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.scss":       "main{}",
		"empty.scss":      "",
		"nested/ind.sass": "ind",
	})

	c := DefaultConfig()
	c.Style = StyleCompressed
	c.FileSets = []FileSet{{Dir: dir}}
	comp := &fakeCompiler{
		out: map[string]string{"main.scss": "main{}", "empty.scss": ""},
	}
	tr := newEmbeddedRun(c, comp)
	st, err := tr.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Succeeded: 2, Empty: 1}, st)

	dat, err := os.ReadFile(filepath.Join(dir, "main.css"))
	require.NoError(t, err)
	assert.Equal(t, "main{}", string(dat))

	_, err = os.Stat(filepath.Join(dir, "empty.css"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 1, tr.count("WARN"))

	dat, err = os.ReadFile(filepath.Join(dir, "nested", "ind.css"))
	require.NoError(t, err)
	assert.Equal(t, "/* ind.sass */", string(dat))

	require.Len(t, comp.seen, 3)
	for _, o := range comp.seen {
		assert.Equal(t, StyleCompressed, o.Style)
		if filepath.Ext(o.Path) == ".sass" {
			assert.Equal(t, SyntaxIndented, o.Syntax)
		} else {
			assert.Equal(t, SyntaxSCSS, o.Syntax)
		}
	}
	assert.Empty(t, tr.procs.calls)
}

func TestRunEmbeddedErrors(t *testing.T) {
	c := DefaultConfig()
	c.FileSets = []FileSet{{Dir: threeFiles(t)}}
	comp := &fakeCompiler{err: map[string]error{"a.scss": errors.New("undefined variable")}}

	tr := newEmbeddedRun(c, comp)
	_, err := tr.runner.Run(context.Background())
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "undefined variable")
	assert.Len(t, comp.seen, 1)

	c.FailOnError = false
	comp = &fakeCompiler{err: map[string]error{"a.scss": errors.New("undefined variable")}}
	tr = newEmbeddedRun(c, comp)
	st, err := tr.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Succeeded: 2, Failed: 1}, st)
	assert.Equal(t, 1, tr.count("ERROR"))
}

func TestRunEmbeddedEncoding(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "l1.scss"), []byte("a{content:\"\xe9\"}"), 0o644))

	c := DefaultConfig()
	c.Encoding = "iso-8859-1"
	c.FileSets = []FileSet{{Dir: dir}}
	comp := &fakeCompiler{}
	tr := newEmbeddedRun(c, comp)
	_, err := tr.runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, comp.srcs, 1)
	assert.Equal(t, "a{content:\"é\"}", comp.srcs[0])

	c.Encoding = "klingon"
	tr = newEmbeddedRun(c, &fakeCompiler{})
	_, err = tr.runner.Run(context.Background())
	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestInvocationResultSucceeded(t *testing.T) {
	assert.True(t, (&InvocationResult{}).Succeeded())
	assert.False(t, (&InvocationResult{ExitCode: 65}).Succeeded())
	assert.False(t, (&InvocationResult{embedded: true}).Succeeded())
	assert.True(t, (&InvocationResult{embedded: true, wrote: true}).Succeeded())
}

func TestRunSymlinkedFileSet(t *testing.T) {
	link := filepath.Join(t.TempDir(), "styles")
	if err := os.Symlink(threeFiles(t), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	c := DefaultConfig()
	c.FileSets = []FileSet{{Dir: link}}

	tr := newTestRun(c)
	st, err := tr.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.scss", "b.scss", "c.scss"}, tr.procs.inputs())
	assert.Equal(t, Stats{Succeeded: 3}, st)
}

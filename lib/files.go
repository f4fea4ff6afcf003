package lib

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type File struct {
	name string
}

func (f *File) Name() string { return f.name }

type Infile struct {
	File
}

func (i *Infile) Read() (ret []byte, err error) {
	rc, err := os.Open(i.name)
	if err != nil {
		return nil, err
	}
	defer func() {
		cerr := rc.Close()
		if err == nil && cerr != nil {
			err = cerr
		}
	}()
	ret, err = io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

type Outfile struct {
	File
}

// Write replaces the file, creating missing parent directories.
func (o *Outfile) Write(dat []byte) (err error) {
	if err := os.MkdirAll(filepath.Dir(o.name), 0o755); err != nil {
		return err
	}
	f, err := os.Create(o.name)
	if err != nil {
		return err
	}
	defer func() {
		cerr := f.Close()
		if err == nil && cerr != nil {
			err = cerr
		}
	}()
	_, err = f.Write(dat)
	return err
}

func newOutfile(f string) Outfile { return Outfile{File: File{name: f}} }
func newInfile(f string) Infile   { return Infile{File: File{name: f}} }

// FileSet selects files under Dir. Patterns are doublestar globs matched
// against slash-separated paths relative to Dir. No includes selects
// everything.
type FileSet struct {
	Dir      string
	Includes []string
	Excludes []string
}

func (f FileSet) check() error {
	if f.Dir == "" {
		return configErrorf("fileset is missing a directory")
	}
	if !isDir(f.Dir) {
		return configErrorf("fileset directory %s does not exist", f.Dir)
	}
	for _, p := range append(append([]string{}, f.Includes...), f.Excludes...) {
		if !doublestar.ValidatePattern(p) {
			return configErrorf("bad pattern %q in fileset %s", p, f.Dir)
		}
	}
	return nil
}

func (f FileSet) selected(rel string) bool {
	included := len(f.Includes) == 0
	for _, p := range f.Includes {
		if matchGlob(p, rel) {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, p := range f.Excludes {
		if matchGlob(p, rel) {
			return false
		}
	}
	return true
}

// matchGlob treats a bad pattern as a non-match; check rejects those first.
func matchGlob(pattern, rel string) bool {
	ok, err := doublestar.Match(pattern, rel)
	return err == nil && ok
}

// Entries walks Dir in lexical order and returns the selected files.
// Symlinked directories, Dir included, are followed. A link back to one of
// its own ancestors is skipped.
func (f FileSet) Entries() ([]FileEntry, error) {
	var ret []FileEntry
	if err := f.walk(f.Dir, "", nil, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// walkFrame is one level of followed links: the resolved root of the walk
// and the resolved directory holding the link that was followed.
type walkFrame struct {
	root string
	at   string
}

func (f FileSet) walk(dir, prefix string, frames []walkFrame, ret *[]FileEntry) error {
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		inner, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel := filepath.Join(prefix, inner)
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil {
				// dangling
				return nil
			}
			if isDir(target) {
				here := append(frames[:len(frames):len(frames)],
					walkFrame{root: root, at: filepath.Dir(path)})
				if loops(here, target) {
					return nil
				}
				return f.walk(path, rel, here, ret)
			}
		}
		if d.IsDir() {
			return nil
		}
		if f.selected(filepath.ToSlash(rel)) {
			*ret = append(*ret, NewFileEntry(rel))
		}
		return nil
	})
}

// loops reports whether target is a directory the walk is already inside.
func loops(frames []walkFrame, target string) bool {
	for _, fr := range frames {
		if within(target, fr.root) && within(fr.at, target) {
			return true
		}
	}
	return false
}

func within(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
}

// FileEntry describes one enumerated input file, relative to its file set.
type FileEntry struct {
	RelativePath string
	Ext          string
	Dir          string
	BaseName     string
}

func NewFileEntry(rel string) FileEntry {
	base := filepath.Base(rel)
	ext := filepath.Ext(base)
	return FileEntry{
		RelativePath: rel,
		Ext:          strings.TrimPrefix(ext, "."),
		Dir:          filepath.Dir(rel),
		BaseName:     base[:len(base)-len(ext)],
	}
}

func (e FileEntry) isStylesheet() bool {
	switch strings.ToLower(e.Ext) {
	case "scss", "sass":
		return true
	}
	return false
}

// OutputPath computes where the compiled form of e is written. root is the
// file set directory, used when the config has no output path. Two inputs
// mapping to the same output are not detected; the last one written wins.
func OutputPath(c Config, root string, e FileEntry) string {
	out := c.OutputPath
	if out == "" {
		out = root
	}
	parts := []string{out}
	sub := strings.Trim(e.Dir, " .")
	if c.KeepSubdirectories && sub != "" {
		parts = append(parts, sub)
	}
	name := e.BaseName
	if !c.RemoveOldExt {
		name += "." + e.Ext
	}
	if c.NewExt != "" {
		name += "." + c.NewExt
	}
	parts = append(parts, name)
	return filepath.Join(parts...)
}

type FilePair struct {
	entry   FileEntry
	infile  Infile
	outfile Outfile
}

func newFilePair(c Config, set FileSet, e FileEntry) FilePair {
	return FilePair{
		entry:   e,
		infile:  newInfile(filepath.Join(set.Dir, e.RelativePath)),
		outfile: newOutfile(OutputPath(c, set.Dir, e)),
	}
}

func (p FilePair) sameFile() bool {
	return filepath.Clean(p.infile.name) == filepath.Clean(p.outfile.name)
}

var errSameFile = errors.New("input file and output file are the same")

func isDir(d string) bool {
	st, err := os.Stat(d)
	if err != nil {
		return false
	}
	return st.IsDir()
}

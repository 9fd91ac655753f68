// Package crawler classifies project files into packages, modules and data files
package crawler

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const (
	sourceSuffix = ".py"
	markerFile   = "__init__.py"
	cacheDir     = "__pycache__"
)

// PathToModuleName converts a source file path to its dotted module
// name: the leading slash is stripped, platform separators become
// slashes, the source suffix is removed and separators become dots.
// "src/pkg/a.py" -> "src.pkg.a".
func PathToModuleName(p string) string {
	p = strings.TrimPrefix(filepath.ToSlash(p), "/")
	p = strings.TrimSuffix(p, sourceSuffix)
	return strings.ReplaceAll(p, "/", ".")
}

// PathToPackageName converts a directory path to its dotted package name
func PathToPackageName(p string) string {
	p = strings.TrimPrefix(filepath.ToSlash(p), "/")
	return strings.ReplaceAll(p, "/", ".")
}

// Result is the classification produced by a crawl. Packages and
// Modules are sorted and disjoint; DataFiles holds manifest include
// directives in accumulation order.
type Result struct {
	Packages  []string
	Modules   []string
	DataFiles []string
}

// HasPackage reports whether the dotted name is classified as a package
func (r *Result) HasPackage(name string) bool {
	for _, p := range r.Packages {
		if p == name {
			return true
		}
	}
	return false
}

// HasModule reports whether the dotted name is classified as a module
func (r *Result) HasModule(name string) bool {
	for _, m := range r.Modules {
		if m == name {
			return true
		}
	}
	return false
}

// Crawler expands glob patterns against a project tree and classifies
// every matched path. It holds no state across crawls.
type Crawler struct {
	baseDir string
	fsys    fs.FS
}

// New creates a crawler rooted at baseDir
func New(baseDir string) *Crawler {
	return &Crawler{baseDir: baseDir}
}

// NewFromFS creates a crawler over an fs.FS, for tests
func NewFromFS(fsys fs.FS) *Crawler {
	return &Crawler{fsys: fsys}
}

// treeEntry is a snapshotted tree member, root-relative in slash form
type treeEntry struct {
	rel   string
	isDir bool
}

// Crawl classifies every path reachable from the include patterns,
// honoring exclude and ignore patterns. Patterns are processed in
// declaration order; within a pattern directories come before files;
// a visited set prevents any path from being classified twice. The
// tree is snapshotted once in lexical walk order, so results do not
// depend on the filesystem's native enumeration order.
func (c *Crawler) Crawl(include, exclude, ignore []string) (*Result, error) {
	tree, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	excludedNames, err := excludedNameSet(tree, append(append([]string{}, exclude...), ignore...))
	if err != nil {
		return nil, err
	}

	visited := make(map[string]bool)
	packages := make(map[string]bool)
	modules := make(map[string]bool)
	var dataFiles []string

	for _, raw := range include {
		pattern, err := CompilePattern(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", raw, err)
		}

		dirs, files := partition(tree, pattern)

		// A {dir}/**/* pattern covers the whole subtree: the root is
		// added first, and directories containing matched files count
		// as matched even when the trailing component only matches
		// files (a *.py suffix never names a directory).
		if root, ok := pattern.RecursiveRoot(); ok {
			if isDir(tree, root) {
				dirs = prependUnique(dirs, root)
			}
		}
		if pattern.Recursive() {
			for _, f := range files {
				parent := path.Dir(f)
				if parent != "." && isDir(tree, parent) {
					dirs = appendUnique(dirs, parent)
				}
			}
		}

		for _, dir := range dirs {
			if visited[dir] {
				continue
			}

			if c.hasMarker(tree, dir) {
				children := immediateSources(tree, dir)

				var filtered []string
				for _, child := range children {
					if !excludedNames[PathToModuleName(child)] {
						filtered = append(filtered, child)
					}
				}

				if len(filtered) == len(children) {
					// No child excluded: the whole directory is a package
					packages[PathToPackageName(dir)] = true
				} else {
					// Partial exclusion: surviving children become modules
					for _, child := range filtered {
						if path.Base(child) == markerFile {
							continue
						}
						modules[PathToModuleName(child)] = true
					}
				}

				for _, child := range children {
					visited[child] = true
				}
			}

			visited[dir] = true
		}

		for _, file := range files {
			if visited[file] {
				continue
			}

			base := path.Base(file)
			switch {
			case strings.HasSuffix(file, sourceSuffix) && base != markerFile:
				modules[PathToModuleName(file)] = true

			case base != markerFile && !strings.Contains(file, cacheDir):
				dataFiles = append(dataFiles, "include "+file)

			case base == markerFile:
				// Marker matched directly: the directory is a package
				// only when the marker is its sole source file.
				dir := path.Dir(file)
				if len(siblingSources(tree, dir)) == 0 && !visited[dir] {
					packages[PathToPackageName(dir)] = true
					visited[dir] = true
				}
			}

			visited[file] = true
		}
	}

	result := &Result{DataFiles: dataFiles}
	for pkg := range packages {
		if !excludedNames[pkg] {
			result.Packages = append(result.Packages, pkg)
		}
	}
	for mod := range modules {
		if !excludedNames[mod] {
			result.Modules = append(result.Modules, mod)
		}
	}
	sort.Strings(result.Packages)
	sort.Strings(result.Modules)

	return result, nil
}

// snapshot walks the tree once, in lexical order
func (c *Crawler) snapshot() ([]treeEntry, error) {
	fsys := c.fsys
	if fsys == nil {
		fsys = os.DirFS(c.baseDir)
	}

	var tree []treeEntry
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		tree = append(tree, treeEntry{rel: p, isDir: d.IsDir()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk project tree: %w", err)
	}
	return tree, nil
}

func (c *Crawler) hasMarker(tree []treeEntry, dir string) bool {
	marker := path.Join(dir, markerFile)
	for _, e := range tree {
		if e.rel == marker && !e.isDir {
			return true
		}
	}
	return false
}

// excludedNameSet expands exclusion globs and collects the dotted
// names of every matched source file
func excludedNameSet(tree []treeEntry, patterns []string) (map[string]bool, error) {
	excluded := make(map[string]bool)
	for _, raw := range patterns {
		pattern, err := CompilePattern(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
		}
		for _, e := range tree {
			if !e.isDir && pattern.Match(e.rel) && strings.HasSuffix(e.rel, sourceSuffix) {
				excluded[PathToModuleName(e.rel)] = true
			}
		}
	}
	return excluded, nil
}

// partition splits a pattern's matches into directories and files,
// preserving walk order
func partition(tree []treeEntry, pattern *Pattern) (dirs, files []string) {
	for _, e := range tree {
		if !pattern.Match(e.rel) {
			continue
		}
		if e.isDir {
			dirs = append(dirs, e.rel)
		} else {
			files = append(files, e.rel)
		}
	}
	return dirs, files
}

// immediateSources lists a directory's direct child source files
func immediateSources(tree []treeEntry, dir string) []string {
	var children []string
	prefix := dir + "/"
	for _, e := range tree {
		if e.isDir || !strings.HasPrefix(e.rel, prefix) {
			continue
		}
		rest := strings.TrimPrefix(e.rel, prefix)
		if !strings.Contains(rest, "/") && strings.HasSuffix(rest, sourceSuffix) {
			children = append(children, e.rel)
		}
	}
	return children
}

// siblingSources lists a directory's direct child source files
// excluding the package marker
func siblingSources(tree []treeEntry, dir string) []string {
	var siblings []string
	for _, child := range immediateSources(tree, dir) {
		if path.Base(child) != markerFile {
			siblings = append(siblings, child)
		}
	}
	return siblings
}

func isDir(tree []treeEntry, p string) bool {
	for _, e := range tree {
		if e.rel == p {
			return e.isDir
		}
	}
	return false
}

func prependUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append([]string{item}, list...)
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}

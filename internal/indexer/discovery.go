package indexer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// stateDir is always skipped; it holds the store and project grammars.
const stateDir = ".structscan"

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
	// root matches files at the top level for patterns starting with **/
	root glob.Glob
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		cp := compiledPattern{pattern: pattern, glob: g}
		if simplified, ok := strings.CutPrefix(pattern, "**/"); ok {
			if rg, err := glob.Compile(simplified, '/'); err == nil {
				cp.root = rg
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

// FileDiscovery handles file discovery with glob patterns and ignore rules.
type FileDiscovery struct {
	rootDir         string
	includePatterns []compiledPattern
	ignorePatterns  []compiledPattern
}

// NewFileDiscovery creates a new file discovery instance.
func NewFileDiscovery(rootDir string, includePatterns, ignorePatterns []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{rootDir: rootDir}

	var err error
	if fd.includePatterns, err = compilePatterns(includePatterns); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compilePatterns(ignorePatterns); err != nil {
		return nil, err
	}

	return fd, nil
}

// RootDir returns the directory discovery is relative to.
func (fd *FileDiscovery) RootDir() string {
	return fd.rootDir
}

// DiscoverFiles walks the directory tree and returns the matching files in
// lexical order. Ignored directories are not descended into.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	files := []string{}

	err := filepath.Walk(fd.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := fd.relPath(path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if relPath != "." && fd.ShouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if fd.Matches(relPath) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// Matches reports whether a slash-separated relative path is included and
// not ignored.
func (fd *FileDiscovery) Matches(relPath string) bool {
	return !fd.ShouldIgnore(relPath) && matchesAnyPattern(relPath, fd.includePatterns)
}

// ShouldIgnore checks if a path matches any ignore pattern.
func (fd *FileDiscovery) ShouldIgnore(relPath string) bool {
	if relPath == stateDir || strings.HasPrefix(relPath, stateDir+"/") {
		return true
	}

	if matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// A directory matches its pattern with a /** suffix, so "node_modules"
	// is ignored by "node_modules/**". Files below it are caught the same
	// way through their own path.
	return matchesAnyPattern(relPath+"/**", fd.ignorePatterns)
}

// relPath converts an absolute or root-joined path into the slash form the
// patterns are written against.
func (fd *FileDiscovery) relPath(path string) (string, error) {
	rel, err := filepath.Rel(fd.rootDir, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// matchesAnyPattern checks if a path matches any of the given patterns.
// Root files (no slash) also match patterns with their **/ prefix removed,
// so "**/*.rs" matches both "main.rs" and "src/lib.rs".
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	atRoot := !strings.Contains(path, "/")
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
		if atRoot && cp.root != nil && cp.root.Match(path) {
			return true
		}
	}
	return false
}

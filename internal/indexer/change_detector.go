package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileState is what an index remembers about one file.
type FileState struct {
	Hash    string
	ModTime time.Time
}

// FileIndex is the stored state change detection compares against.
type FileIndex interface {
	// FileStates returns the stored state keyed by slash-separated relative path.
	FileStates(ctx context.Context) (map[string]FileState, error)
}

// ChangeSet contains the result of change detection. Paths are relative to
// the root and slash-separated.
type ChangeSet struct {
	Added     []string // New files not in the index
	Modified  []string // Files with different hash than the index
	Deleted   []string // Files in the index but not on disk
	Unchanged []string // Files with same hash (mtime may have drifted)
}

// Changed returns the added and modified files, the ones needing a rescan.
func (cs *ChangeSet) Changed() []string {
	out := make([]string, 0, len(cs.Added)+len(cs.Modified))
	out = append(out, cs.Added...)
	return append(out, cs.Modified...)
}

// Empty reports whether nothing was added, modified or deleted.
func (cs *ChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Modified) == 0 && len(cs.Deleted) == 0
}

// ChangeDetector compares filesystem state to index state.
type ChangeDetector struct {
	index     FileIndex
	discovery *FileDiscovery
}

// NewChangeDetector creates a new change detector.
func NewChangeDetector(index FileIndex, discovery *FileDiscovery) *ChangeDetector {
	return &ChangeDetector{index: index, discovery: discovery}
}

// DetectChanges compares disk to the index.
//
// With an empty hint every discovered file is checked and indexed files no
// longer on disk are reported deleted. With a hint (paths from a watcher)
// only those files are checked, and a hinted file missing from disk is
// reported deleted.
//
// A file whose mtime matches the index is unchanged without hashing. When
// the mtime differs the content hash decides.
func (cd *ChangeDetector) DetectChanges(ctx context.Context, hint []string) (*ChangeSet, error) {
	changes := &ChangeSet{
		Added:     []string{},
		Modified:  []string{},
		Deleted:   []string{},
		Unchanged: []string{},
	}

	var toCheck []string
	if len(hint) == 0 {
		files, err := cd.discovery.DiscoverFiles()
		if err != nil {
			return nil, fmt.Errorf("failed to discover files: %w", err)
		}
		toCheck = files
	} else {
		toCheck = hint
	}

	stored, err := cd.index.FileStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read index state: %w", err)
	}

	seen := make(map[string]bool, len(toCheck))
	for _, file := range toCheck {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		absPath := file
		if !filepath.IsAbs(file) {
			absPath = filepath.Join(cd.discovery.RootDir(), file)
		}
		relPath, err := cd.discovery.relPath(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to get relative path for %s: %w", file, err)
		}
		if seen[relPath] {
			continue
		}
		seen[relPath] = true

		state, indexed := stored[relPath]

		info, err := os.Stat(absPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to stat file %s: %w", relPath, err)
			}
			if indexed && len(hint) > 0 {
				changes.Deleted = append(changes.Deleted, relPath)
			}
			continue
		}

		if !indexed {
			changes.Added = append(changes.Added, relPath)
			continue
		}

		if info.ModTime().Equal(state.ModTime) {
			changes.Unchanged = append(changes.Unchanged, relPath)
			continue
		}

		src, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
		}
		if ContentHash(src) == state.Hash {
			changes.Unchanged = append(changes.Unchanged, relPath)
		} else {
			changes.Modified = append(changes.Modified, relPath)
		}
	}

	if len(hint) == 0 {
		for relPath := range stored {
			if !seen[relPath] {
				changes.Deleted = append(changes.Deleted, relPath)
			}
		}
		sort.Strings(changes.Deleted)
	}

	return changes, nil
}

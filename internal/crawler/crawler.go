package crawler

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Crawler walks a source tree and collects the files worth indexing.
type Crawler struct {
	extensions map[string]bool
	ignored    []string
}

// New creates a crawler limited to the given extensions (without dot).
// ignored directories are skipped entirely.
func New(extensions map[string]bool, ignored []string) *Crawler {
	if len(ignored) == 0 {
		ignored = []string{".git", "vendor", "node_modules", "testdata"}
	}
	return &Crawler{extensions: extensions, ignored: ignored}
}

// Matches reports whether a single path would be picked up by ScanProject.
func (c *Crawler) Matches(path string) bool {
	name := filepath.Base(path)
	if strings.HasSuffix(name, "_test.go") {
		return false
	}
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if len(c.extensions) > 0 && !c.extensions[ext] {
		return false
	}
	for _, ign := range c.ignored {
		if strings.Contains(path, string(filepath.Separator)+ign+string(filepath.Separator)) {
			return false
		}
	}
	return true
}

// ScanProject walks root and returns the relevant file paths. Unreadable
// subtrees are skipped rather than failing the walk.
func (c *Crawler) ScanProject(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}
		ext := strings.TrimPrefix(filepath.Ext(d.Name()), ".")
		if len(c.extensions) > 0 && !c.extensions[ext] {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

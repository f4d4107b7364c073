package depgraph

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"codescout/internal/chunker"
)

// Builder constructs the file-level dependency graph in two passes:
// first a symbol table of class/method definitions per file, then a scan of
// each file's import and usage statements resolved against that table.
type Builder struct {
	chunker *chunker.Chunker
	logger  *slog.Logger
}

func NewBuilder(c *chunker.Chunker, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{chunker: c, logger: logger}
}

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Build parses the given files and returns the dependency graph. A file that
// fails to parse is skipped with a logged issue; a single bad file never
// aborts the build.
func (b *Builder) Build(files []string) *Graph {
	type parsed struct {
		path    string
		content string
	}

	// Pass 1: symbol table. Only exported-looking names longer than two
	// characters are indexed, to keep the usage scan from matching noise.
	symbolOwners := make(map[string][]string)
	var sources []parsed
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("depgraph: read failed", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		src := string(data)
		sources = append(sources, parsed{path: path, content: src})

		symbols, err := b.chunker.Symbols(path, data)
		if err != nil {
			b.logger.Warn("depgraph: parse failed, skipping", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		for _, sym := range symbols {
			if !indexable(sym.Name) {
				continue
			}
			symbolOwners[sym.Name] = append(symbolOwners[sym.Name], path)
		}
	}

	// Pass 2: resolve references. Identifier occurrences that match a symbol
	// defined in another file become forward edges.
	g := NewGraph()
	for _, src := range sources {
		refs := referencedSymbols(src.content, symbolOwners)
		for sym := range refs {
			for _, owner := range symbolOwners[sym] {
				if owner != src.path {
					g.AddEdge(src.path, owner)
				}
			}
		}
		for _, target := range importTargets(src.content, files) {
			g.AddEdge(src.path, target)
		}
	}
	return g
}

// indexable filters symbol names worth resolving: exported-style identifiers
// of three or more characters.
func indexable(name string) bool {
	if len(name) < 3 {
		return false
	}
	return name[0] >= 'A' && name[0] <= 'Z'
}

func referencedSymbols(content string, symbolOwners map[string][]string) map[string]struct{} {
	refs := make(map[string]struct{})
	for _, ident := range identRe.FindAllString(content, -1) {
		if _, ok := symbolOwners[ident]; ok {
			refs[ident] = struct{}{}
		}
	}
	return refs
}

var importLineRe = regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?["']?([\w./\\-]+)["']?`)

// importTargets maps import statements to known files by matching the last
// path segment against file basenames. Best effort: unresolvable imports
// (stdlib, third party) are dropped.
func importTargets(content string, files []string) []string {
	byBase := make(map[string][]string, len(files))
	for _, f := range files {
		base := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		byBase[base] = append(byBase[base], f)
	}

	var targets []string
	for _, m := range importLineRe.FindAllStringSubmatch(content, -1) {
		imp := strings.TrimSuffix(m[1], ";")
		parts := strings.FieldsFunc(imp, func(r rune) bool { return r == '.' || r == '/' || r == '\\' })
		if len(parts) == 0 {
			continue
		}
		last := parts[len(parts)-1]
		targets = append(targets, byBase[last]...)
	}
	return targets
}

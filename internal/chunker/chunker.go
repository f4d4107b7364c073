package chunker

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"codescout/internal/apperr"
)

// Chunk is a sub-file unit extracted from a source file: a class or a
// method/function body, with its location.
type Chunk struct {
	Name      string
	Kind      string // "class" or "method"
	StartLine int
	EndLine   int
	Content   string
}

// Symbol is a named definition used to build the file-level symbol table for
// dependency resolution.
type Symbol struct {
	Name string
	Kind string
}

// Chunker parses source files with tree-sitter and extracts class/method
// chunks. Files without a registered grammar fall back to a regex scan so the
// pipeline stays best-effort.
type Chunker struct {
	registry *Registry
}

func New(registry *Registry) *Chunker {
	return &Chunker{registry: registry}
}

// Chunk parses src and returns its class and method chunks.
func (c *Chunker) Chunk(path string, src []byte) ([]Chunk, error) {
	spec, _ := c.registry.Lookup(path)
	if spec == nil {
		return fallbackChunks(path, src), nil
	}

	captures, err := c.capture(path, src, spec)
	if err != nil {
		return nil, err
	}

	lines := splitLines(src)
	chunks := make([]Chunk, 0, len(captures))
	for _, cap := range captures {
		chunks = append(chunks, Chunk{
			Name:      cap.name,
			Kind:      cap.kind,
			StartLine: cap.startLine,
			EndLine:   cap.endLine,
			Content:   sliceLines(lines, cap.startLine, cap.endLine),
		})
	}
	return chunks, nil
}

// Symbols returns the named definitions in src, for the dependency graph's
// symbol table. It is the same parse as Chunk, reduced to names.
func (c *Chunker) Symbols(path string, src []byte) ([]Symbol, error) {
	chunks, err := c.Chunk(path, src)
	if err != nil {
		return nil, err
	}
	symbols := make([]Symbol, 0, len(chunks))
	for _, ch := range chunks {
		if ch.Name == "" {
			continue
		}
		symbols = append(symbols, Symbol{Name: ch.Name, Kind: ch.Kind})
	}
	return symbols, nil
}

type capture struct {
	name      string
	kind      string
	startLine int
	endLine   int
	startByte uint32
	endByte   uint32
}

func (c *Chunker) capture(path string, src []byte, spec *LanguageSpec) ([]capture, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", apperr.ErrParseFailure, path, err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(spec.Query), spec.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: compile query for %s: %v", apperr.ErrParseFailure, path, err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var captures []capture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var node *sitter.Node
		var name, kind string
		for _, cap := range m.Captures {
			switch q.CaptureNameForId(cap.Index) {
			case "class":
				node = cap.Node
				kind = "class"
			case "method":
				node = cap.Node
				kind = "method"
			case "name":
				name = cap.Node.Content(src)
			}
		}
		if node == nil {
			continue
		}
		captures = append(captures, capture{
			name:      name,
			kind:      kind,
			startLine: int(node.StartPoint().Row) + 1,
			endLine:   int(node.EndPoint().Row) + 1,
			startByte: node.StartByte(),
			endByte:   node.EndByte(),
		})
	}

	sort.Slice(captures, func(i, j int) bool {
		if captures[i].startByte != captures[j].startByte {
			return captures[i].startByte < captures[j].startByte
		}
		return (captures[i].endByte - captures[i].startByte) > (captures[j].endByte - captures[j].startByte)
	})
	return captures, nil
}

func splitLines(src []byte) []string {
	var lines []string
	start := 0
	for i, b := range src {
		if b == '\n' {
			lines = append(lines, string(src[start:i]))
			start = i + 1
		}
	}
	if start < len(src) {
		lines = append(lines, string(src[start:]))
	}
	return lines
}

// sliceLines joins the 1-indexed inclusive line range.
func sliceLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	out := ""
	for i := start - 1; i < end; i++ {
		if i > start-1 {
			out += "\n"
		}
		out += lines[i]
	}
	return out
}

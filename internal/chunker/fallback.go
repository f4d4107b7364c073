package chunker

import (
	"regexp"
	"strings"
)

// Definition-ish lines for languages without a registered grammar. Good
// enough to keep the symbol table and graph best-effort.
var fallbackDefRe = regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+|static\s+|export\s+)*` +
	`(?:class|interface|enum|struct|trait|def|func|function)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// fallbackChunks scans src line by line for definition-like statements and
// emits one chunk per hit, spanning to the next hit.
func fallbackChunks(path string, src []byte) []Chunk {
	lines := strings.Split(string(src), "\n")

	type hit struct {
		name string
		line int
	}
	var hits []hit
	for i, line := range lines {
		if m := fallbackDefRe.FindStringSubmatch(line); m != nil {
			hits = append(hits, hit{name: m[1], line: i + 1})
		}
	}
	if len(hits) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, len(hits))
	for i, h := range hits {
		end := len(lines)
		if i+1 < len(hits) {
			end = hits[i+1].line - 1
		}
		chunks = append(chunks, Chunk{
			Name:      h.name,
			Kind:      "method",
			StartLine: h.line,
			EndLine:   end,
			Content:   strings.Join(lines[h.line-1:end], "\n"),
		})
	}
	return chunks
}

package depgraph

import "sort"

// Graph holds the file-level dependency structure: forward adjacency
// (file -> files it uses) and the precomputed reverse index. The two are kept
// symmetric: A->B forward implies B->A reverse. A built graph is read-only;
// updates produce a new Graph that is swapped in atomically.
type Graph struct {
	forward map[string]map[string]struct{}
	reverse map[string]map[string]struct{}
}

func NewGraph() *Graph {
	return &Graph{
		forward: make(map[string]map[string]struct{}),
		reverse: make(map[string]map[string]struct{}),
	}
}

// AddEdge records a forward edge from -> to and its reverse mirror.
// Self-edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	if from == to || from == "" || to == "" {
		return
	}
	if g.forward[from] == nil {
		g.forward[from] = make(map[string]struct{})
	}
	g.forward[from][to] = struct{}{}
	if g.reverse[to] == nil {
		g.reverse[to] = make(map[string]struct{})
	}
	g.reverse[to][from] = struct{}{}
}

// GetDependencies returns the files that file depends on, sorted.
func (g *Graph) GetDependencies(file string) []string {
	return sortedKeys(g.forward[file])
}

// GetReverseDependencies returns the files that depend on file, sorted.
func (g *Graph) GetReverseDependencies(file string) []string {
	return sortedKeys(g.reverse[file])
}

// Has reports whether file appears anywhere in the graph.
func (g *Graph) Has(file string) bool {
	if _, ok := g.forward[file]; ok {
		return true
	}
	_, ok := g.reverse[file]
	return ok
}

// EdgeCount returns the number of forward edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, targets := range g.forward {
		n += len(targets)
	}
	return n
}

// Files returns every file that appears as an edge endpoint, sorted.
func (g *Graph) Files() []string {
	seen := make(map[string]struct{})
	for f := range g.forward {
		seen[f] = struct{}{}
	}
	for f := range g.reverse {
		seen[f] = struct{}{}
	}
	return sortedKeys(seen)
}

// Expand runs a breadth-first traversal from the seed files across forward
// (and, when includeReverse is set, reverse) edges, bounded by maxHops.
// The result includes the seeds themselves, deduplicated and sorted.
func (g *Graph) Expand(seeds []string, maxHops int, includeReverse bool) []string {
	visited := make(map[string]struct{}, len(seeds))
	queue := make([]hop, 0, len(seeds))
	for _, s := range seeds {
		if s == "" {
			continue
		}
		if _, ok := visited[s]; ok {
			continue
		}
		visited[s] = struct{}{}
		queue = append(queue, hop{file: s, depth: 0})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxHops {
			continue
		}

		neighbors := g.forward[cur.file]
		for n := range neighbors {
			if _, ok := visited[n]; ok {
				continue
			}
			visited[n] = struct{}{}
			queue = append(queue, hop{file: n, depth: cur.depth + 1})
		}
		if includeReverse {
			for n := range g.reverse[cur.file] {
				if _, ok := visited[n]; ok {
					continue
				}
				visited[n] = struct{}{}
				queue = append(queue, hop{file: n, depth: cur.depth + 1})
			}
		}
	}

	return sortedKeys(visited)
}

type hop struct {
	file  string
	depth int
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

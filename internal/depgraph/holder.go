package depgraph

import "sync/atomic"

// Holder publishes the current graph to concurrent readers. A background
// re-index builds a fresh graph and swaps the pointer, so an in-flight
// retrieval never observes a half-updated structure.
type Holder struct {
	current atomic.Pointer[Graph]
}

func NewHolder() *Holder {
	h := &Holder{}
	h.current.Store(NewGraph())
	return h
}

// Current returns the latest published graph. Never nil.
func (h *Holder) Current() *Graph {
	return h.current.Load()
}

// Swap publishes g as the current graph.
func (h *Holder) Swap(g *Graph) {
	if g == nil {
		return
	}
	h.current.Store(g)
}

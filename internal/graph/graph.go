package graph

import (
	"sort"

	"github.com/quantmind-br/whyml-go/internal/domain"
)

// Node is one loaded document and its outgoing references
type Node struct {
	ID  string
	Doc *domain.Document
	// Parent is the canonical extends target, empty when the document has none
	Parent string
	// Dependencies are canonical include targets in listed order
	Dependencies []string
}

// Refs returns the parent followed by the dependencies, without duplicates
func (n *Node) Refs() []string {
	refs := make([]string, 0, len(n.Dependencies)+1)
	seen := make(map[string]bool, len(n.Dependencies)+1)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			refs = append(refs, id)
		}
	}
	add(n.Parent)
	for _, d := range n.Dependencies {
		add(d)
	}
	return refs
}

// Graph is the extends/dependencies graph reachable from a root document.
// An edge a → b means a needs b merged before it.
type Graph struct {
	root  string
	nodes map[string]*Node
}

// New creates a graph rooted at root from already loaded documents
func New(root string, docs ...*domain.Document) *Graph {
	g := &Graph{root: root, nodes: make(map[string]*Node, len(docs))}
	for _, d := range docs {
		g.add(d.SourceID, d)
	}
	return g
}

func (g *Graph) add(id string, doc *domain.Document) *Node {
	n := &Node{
		ID:           id,
		Doc:          doc,
		Parent:       doc.Extends,
		Dependencies: append([]string(nil), doc.Dependencies...),
	}
	g.nodes[id] = n
	return n
}

// Root returns the root source id
func (g *Graph) Root() string {
	return g.root
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node for id
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Document returns the loaded document for id
func (g *Graph) Document(id string) *domain.Document {
	if n, ok := g.nodes[id]; ok {
		return n.Doc
	}
	return nil
}

// IDs returns every source id in lexical order
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Edges lists every reference, grouped by source id in lexical order; within
// a node the extends edge comes first, then includes in listed order
func (g *Graph) Edges() []domain.Edge {
	var edges []domain.Edge
	for _, id := range g.IDs() {
		n := g.nodes[id]
		if n.Parent != "" {
			edges = append(edges, domain.Edge{From: id, To: n.Parent, Kind: domain.EdgeExtends})
		}
		for _, dep := range n.Dependencies {
			edges = append(edges, domain.Edge{From: id, To: dep, Kind: domain.EdgeInclude})
		}
	}
	return edges
}

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

// DetectCycle returns a *domain.CyclicDependencyError for the first cycle
// found walking from the root, then from the remaining nodes in lexical
// order. The reported cycle repeats its first id at the end.
func (g *Graph) DetectCycle() error {
	states := make(map[string]visitState, len(g.nodes))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		switch states[id] {
		case stateVisiting:
			start := 0
			for i, s := range stack {
				if s == id {
					start = i
					break
				}
			}
			cycle := append(append([]string(nil), stack[start:]...), id)
			return &domain.CyclicDependencyError{Cycle: cycle}
		case stateDone:
			return nil
		}

		n, ok := g.nodes[id]
		if !ok {
			return nil
		}

		states[id] = stateVisiting
		stack = append(stack, id)
		for _, next := range n.Refs() {
			if err := visit(next); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		states[id] = stateDone
		return nil
	}

	starts := g.IDs()
	if _, ok := g.nodes[g.root]; ok {
		starts = append([]string{g.root}, starts...)
	}
	for _, id := range starts {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// TopologicalOrder returns every id with each document after the documents it
// references. Ties are broken lexically so the order is deterministic.
func (g *Graph) TopologicalOrder() ([]string, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, len(g.nodes))
	for _, level := range levels {
		order = append(order, level...)
	}
	return order, nil
}

// Levels groups ids into layers: layer 0 references nothing and every other
// document sits one layer above its deepest reference. Documents in the same
// layer are independent of each other. Each layer is sorted lexically.
func (g *Graph) Levels() ([][]string, error) {
	pending := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for id, n := range g.nodes {
		for _, ref := range n.Refs() {
			if _, ok := g.nodes[ref]; !ok {
				continue
			}
			pending[id]++
			dependents[ref] = append(dependents[ref], id)
		}
	}

	var ready []string
	for id := range g.nodes {
		if pending[id] == 0 {
			ready = append(ready, id)
		}
	}

	var levels [][]string
	placed := 0
	for len(ready) > 0 {
		sort.Strings(ready)
		levels = append(levels, ready)
		placed += len(ready)

		var next []string
		for _, id := range ready {
			for _, dep := range dependents[id] {
				pending[dep]--
				if pending[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		ready = next
	}

	if placed != len(g.nodes) {
		if err := g.DetectCycle(); err != nil {
			return nil, err
		}
		return nil, &domain.CyclicDependencyError{}
	}
	return levels, nil
}

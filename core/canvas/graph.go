package canvas

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// NewID returns a 16 hex character id in the style canvas editors generate.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Graph is an in-memory, concurrency-safe Accessor.
type Graph struct {
	mu    sync.RWMutex
	nodes []Node
	edges []Edge
	saves int
}

// NewGraph builds a graph from a snapshot. The snapshot is copied.
func NewGraph(data Data) *Graph {
	return &Graph{
		nodes: slices.Clone(data.Nodes),
		edges: slices.Clone(data.Edges),
	}
}

// Data returns a copy of the current nodes and edges.
func (g *Graph) Data() Data {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return Data{
		Nodes: slices.Clone(g.nodes),
		Edges: slices.Clone(g.edges),
	}
}

// NodeByID returns the current state of a node.
func (g *Graph) NodeByID(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	index := g.indexOf(id)
	if index < 0 {
		return Node{}, false
	}
	return g.nodes[index], true
}

func (g *Graph) indexOf(id string) int {
	return slices.IndexFunc(g.nodes, func(node Node) bool { return node.ID == id })
}

// CreateNode adds a node and returns it with a fresh id.
func (g *Graph) CreateNode(spec NodeSpec) (Node, error) {
	kind := spec.Type
	if kind == "" {
		kind = KindText
	}
	if kind != KindText && kind != KindFile {
		return Node{}, fmt.Errorf("canvas: unknown node type %q", kind)
	}
	if !spec.Role.Valid() {
		return Node{}, fmt.Errorf("canvas: unknown role %q", spec.Role)
	}

	node := Node{
		ID:     NewID(),
		Type:   kind,
		Text:   spec.Text,
		File:   spec.File,
		X:      spec.X,
		Y:      spec.Y,
		Width:  spec.Width,
		Height: spec.Height,
		Color:  spec.Color,
		Role:   spec.Role,
	}

	g.mu.Lock()
	g.nodes = append(g.nodes, node)
	g.mu.Unlock()

	return node, nil
}

// CreateEdge connects two existing nodes.
func (g *Graph) CreateEdge(fromNode string, fromSide Side, toNode string, toSide Side) (Edge, error) {
	if !fromSide.Valid() || !toSide.Valid() {
		return Edge{}, fmt.Errorf("%w: %q -> %q", ErrInvalidSide, fromSide, toSide)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range []string{fromNode, toNode} {
		if g.indexOf(id) < 0 {
			return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
	}

	edge := Edge{
		ID:       NewID(),
		FromNode: fromNode,
		FromSide: fromSide,
		ToNode:   toNode,
		ToSide:   toSide,
	}
	g.edges = append(g.edges, edge)
	return edge, nil
}

// UpdateNode applies fn to the stored node under the write lock.
func (g *Graph) UpdateNode(id string, fn func(node *Node)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	index := g.indexOf(id)
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	fn(&g.nodes[index])
	g.nodes[index].ID = id
	return nil
}

// Save counts the call; an in-memory graph has nothing to persist.
func (g *Graph) Save() error {
	g.mu.Lock()
	g.saves++
	g.mu.Unlock()
	return nil
}

// Saves reports how many times Save was called.
func (g *Graph) Saves() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.saves
}

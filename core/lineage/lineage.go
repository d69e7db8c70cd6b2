// Package lineage linearizes the conversation history that feeds a node.
//
// History runs backwards along incoming edges. A node can have several
// parents and the graph may contain cycles, so traversal tracks visited ids
// per call and never mutates the graph.
package lineage

import (
	"slices"

	"github.com/leofalp/caret/core/canvas"
)

// index holds lookup tables for one traversal. Edges that reference a node
// missing from the snapshot are dropped here.
type index struct {
	nodes    map[string]canvas.Node
	incoming map[string][]string
}

func newIndex(data canvas.Data) index {
	idx := index{
		nodes:    make(map[string]canvas.Node, len(data.Nodes)),
		incoming: make(map[string][]string),
	}
	for _, node := range data.Nodes {
		idx.nodes[node.ID] = node
	}
	for _, edge := range data.Edges {
		if _, ok := idx.nodes[edge.FromNode]; !ok {
			continue
		}
		if _, ok := idx.nodes[edge.ToNode]; !ok {
			continue
		}
		idx.incoming[edge.ToNode] = append(idx.incoming[edge.ToNode], edge.FromNode)
	}
	return idx
}

// Longest returns the longest chain of ancestors ending at startID, ordered
// from the start node back to the oldest ancestor. Every branch is explored;
// a branch ends at a node without parents or where the only parents are
// already on the current path. Among equally long chains the first one found
// wins. An unknown startID yields nil.
func Longest(data canvas.Data, startID string) []canvas.Node {
	idx := newIndex(data)
	start, ok := idx.nodes[startID]
	if !ok {
		return nil
	}

	var best []canvas.Node
	path := []canvas.Node{start}
	onPath := map[string]bool{startID: true}

	var walk func(id string)
	walk = func(id string) {
		extended := false
		for _, parentID := range idx.incoming[id] {
			if onPath[parentID] {
				continue
			}
			extended = true

			onPath[parentID] = true
			path = append(path, idx.nodes[parentID])
			walk(parentID)
			path = path[:len(path)-1]
			delete(onPath, parentID)
		}

		if !extended && len(path) > len(best) {
			best = slices.Clone(path)
		}
	}
	walk(startID)

	return best
}

// AllAncestors returns every node reachable backwards from startID, in
// breadth-first discovery order, excluding the start node. A global visited
// set bounds the walk on cyclic and diamond-shaped graphs.
func AllAncestors(data canvas.Data, startID string) []canvas.Node {
	idx := newIndex(data)
	if _, ok := idx.nodes[startID]; !ok {
		return nil
	}

	visited := map[string]bool{startID: true}
	queue := []string{startID}
	var ancestors []canvas.Node

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, parentID := range idx.incoming[current] {
			if visited[parentID] {
				continue
			}
			visited[parentID] = true
			ancestors = append(ancestors, idx.nodes[parentID])
			queue = append(queue, parentID)
		}
	}

	return ancestors
}

package dag

import (
	"sort"
	"sync"
)

// Graph is a collection of package nodes and their dependency edges.
// All operations on the graph are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by package name.
	nodes map[string]*node
	// order records insertion order so that iteration is deterministic.
	order []string
}

// node is un-exported to enforce interaction with the graph via the public
// API (using string IDs), not by direct struct manipulation.
type node struct {
	id string
	// deps holds the packages this package depends on (predecessors).
	deps map[string]*node
	// dependents holds the packages depending on this one (successors).
	dependents map[string]*node
}

// sortedIDs returns the keys of a neighbour set in lexical order.
func sortedIDs(set map[string]*node) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

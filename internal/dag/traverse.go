package dag

import "sort"

// Ancestors returns every node the given node transitively depends on, in
// lexical order and excluding the node itself. Unknown IDs yield nil.
func (g *Graph) Ancestors(id string) []string {
	return g.walk(id, func(n *node) map[string]*node { return n.deps })
}

// Reachable walks an adjacency map breadth-first from start and returns
// every node reached, in lexical order and excluding start. A visited set
// collects each node exactly once, so diamonds and cycles are fine.
func Reachable(adjacency map[string][]string, start string) []string {
	visited := map[string]bool{start: true}
	queue := []string{start}
	var result []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[current] {
			if visited[next] {
				continue
			}
			visited[next] = true
			result = append(result, next)
			queue = append(queue, next)
		}
	}
	sort.Strings(result)
	return result
}

func (g *Graph) walk(id string, next func(*node) map[string]*node) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	start, ok := g.nodes[id]
	if !ok {
		return nil
	}

	visited := map[string]bool{id: true}
	queue := []*node{start}
	var result []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, nextID := range sortedIDs(next(current)) {
			if visited[nextID] {
				continue
			}
			visited[nextID] = true
			result = append(result, nextID)
			queue = append(queue, next(current)[nextID])
		}
	}
	sort.Strings(result)
	return result
}

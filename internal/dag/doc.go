// Package dag provides the directed graph used to hold package dependency
// relationships. Nodes are identified by string IDs; an edge from A to B
// signifies that B depends on A.
//
// Traversals are bounded by visited sets, so they terminate even on graphs
// that DetectCycles would reject.
package dag

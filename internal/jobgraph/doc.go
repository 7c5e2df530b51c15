// Package jobgraph maps a workspace's package dependency graph onto a CI job
// topology.
//
// A Namer turns package names (and logical names such as "buildconf") into
// job names. A Partitioner restricts the dependency graph to the set of
// packages managed in the current run and answers which jobs gate a package
// (upstream), which jobs it triggers (downstream), and which packages of a
// list are roots for manual triggering.
package jobgraph

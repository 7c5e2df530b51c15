package jobgraph

import (
	"errors"
	"fmt"

	"github.com/vk/jobsync/internal/config"
	"github.com/vk/jobsync/internal/dag"
)

// ErrPackageNotFound is returned when a name does not resolve to a package of
// the workspace.
var ErrPackageNotFound = errors.New("package not found")

// Partitioner answers job topology questions for the managed subset of a
// workspace. It is read-only once built.
type Partitioner struct {
	namer   Namer
	model   *config.Model
	graph   *dag.Graph
	reverse map[string][]string
	managed map[string]bool
}

// NewPartitioner builds the dependency graph of the model and restricts
// results to the managed package names. Duplicates in managed are ignored.
func NewPartitioner(model *config.Model, namer Namer, managed []string) (*Partitioner, error) {
	graph, err := dag.FromDependencies(model.DependencyMap())
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	p := &Partitioner{
		namer:   namer,
		model:   model,
		graph:   graph,
		reverse: model.ReverseDependencies(),
		managed: make(map[string]bool, len(managed)),
	}
	for _, name := range managed {
		p.managed[name] = true
	}
	return p, nil
}

// Managed reports whether the package gets a job in this run.
func (p *Partitioner) Managed(name string) bool {
	return p.managed[name]
}

// Upstream returns the managed packages that pkg transitively depends on,
// sorted. The traversal runs over the whole workspace graph and only the
// result is restricted to the managed set.
func (p *Partitioner) Upstream(pkg string) []string {
	return p.restrict(p.graph.Ancestors(pkg))
}

// Downstream returns the managed packages that transitively depend on pkg,
// sorted. The walk follows the workspace reverse-dependency map.
func (p *Partitioner) Downstream(pkg string) []string {
	return p.restrict(dag.Reachable(p.reverse, pkg))
}

// UpstreamJobs maps the job name of every upstream package to its package
// name.
func (p *Partitioner) UpstreamJobs(pkg string) map[string]string {
	return p.jobMap(p.Upstream(pkg))
}

// DownstreamJobs maps the job name of every downstream package to its
// package name.
func (p *Partitioner) DownstreamJobs(pkg string) map[string]string {
	return p.jobMap(p.Downstream(pkg))
}

// TriggerRoots keeps the names of the list that have no direct dependency
// on another member of the list. The input order is preserved.
func (p *Partitioner) TriggerRoots(names []string) ([]string, error) {
	listed := make(map[string]bool, len(names))
	for _, name := range names {
		listed[name] = true
	}

	var roots []string
	for _, name := range names {
		pkg, ok := p.model.Package(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, name)
		}
		if !dependsOnAny(pkg, listed) {
			roots = append(roots, name)
		}
	}
	return roots, nil
}

func dependsOnAny(pkg *config.Package, names map[string]bool) bool {
	for _, dep := range pkg.Dependencies {
		if dep != pkg.Name && names[dep] {
			return true
		}
	}
	return false
}

func (p *Partitioner) restrict(names []string) []string {
	result := make([]string, 0, len(names))
	for _, name := range names {
		if p.managed[name] {
			result = append(result, name)
		}
	}
	return result
}

func (p *Partitioner) jobMap(names []string) map[string]string {
	jobs := make(map[string]string, len(names))
	for _, name := range names {
		jobs[p.namer.JobName(name)] = name
	}
	return jobs
}

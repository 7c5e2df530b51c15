package config

import (
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// VCS describes how the sources of a package (or of the workspace's own
// build configuration) are fetched.
type VCS struct {
	Type   string
	URL    string
	Branch string
}

// IsNone reports whether the descriptor declares no version control at all.
func (v VCS) IsNone() bool {
	return v.Type == "" || v.Type == "none"
}

// IsLocal reports whether the descriptor points at something only reachable
// from the machine that loaded the workspace.
func (v VCS) IsLocal() bool {
	if v.Type == "local" {
		return true
	}
	if v.URL == "" {
		return false
	}
	ep, err := v.Endpoint()
	if err != nil {
		return false
	}
	return ep.Protocol == "file"
}

// Endpoint parses the descriptor URL. Besides regular URLs it understands the
// scp-like `user@host:path` form used by git, which resolves to ssh.
func (v VCS) Endpoint() (*transport.Endpoint, error) {
	ep, err := transport.NewEndpoint(v.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s url %q: %w", v.Type, v.URL, err)
	}
	return ep, nil
}

// String implements fmt.Stringer for log output.
func (v VCS) String() string {
	if v.Branch == "" {
		return fmt.Sprintf("%s:%s", v.Type, v.URL)
	}
	return fmt.Sprintf("%s:%s@%s", v.Type, v.URL, v.Branch)
}

// Package is a single buildable unit of the workspace. The core only ever
// reads it.
type Package struct {
	Name         string
	Dependencies []string
	VCS          VCS
	// SrcDir and Prefix are absolute paths.
	SrcDir string
	Prefix string
}

// Model is the unified, format-agnostic representation of a workspace.
type Model struct {
	// Root is the absolute path of the workspace root.
	Root string
	// VCS describes where the workspace build configuration lives.
	VCS VCS
	// SeedConfig holds optional key/value settings handed to the bootstrap.
	SeedConfig map[string]string
	Packages   map[string]*Package
	// Order lists package names in declaration order.
	Order []string
}

// NewModel creates an empty model rooted at the given directory.
func NewModel(root string) *Model {
	return &Model{
		Root:     root,
		Packages: make(map[string]*Package),
	}
}

// AddPackage registers a package. Declaring the same name twice is an error.
func (m *Model) AddPackage(pkg *Package) error {
	if _, exists := m.Packages[pkg.Name]; exists {
		return fmt.Errorf("package %q declared more than once", pkg.Name)
	}
	m.Packages[pkg.Name] = pkg
	m.Order = append(m.Order, pkg.Name)
	return nil
}

// Package resolves a package by name.
func (m *Model) Package(name string) (*Package, bool) {
	pkg, ok := m.Packages[name]
	return pkg, ok
}

// DependencyMap returns the direct dependencies of every package.
func (m *Model) DependencyMap() map[string][]string {
	deps := make(map[string][]string, len(m.Packages))
	for name, pkg := range m.Packages {
		deps[name] = append([]string(nil), pkg.Dependencies...)
	}
	return deps
}

// ReverseDependencies computes, for every package, the sorted list of
// packages that directly depend on it.
func (m *Model) ReverseDependencies() map[string][]string {
	revdeps := make(map[string][]string, len(m.Packages))
	for name, pkg := range m.Packages {
		for _, dep := range pkg.Dependencies {
			revdeps[dep] = append(revdeps[dep], name)
		}
	}
	for name := range revdeps {
		sort.Strings(revdeps[name])
	}
	return revdeps
}

// PackageNames returns all package names in declaration order.
func (m *Model) PackageNames() []string {
	return append([]string(nil), m.Order...)
}

package hcl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/jobsync/internal/config"
	"github.com/vk/jobsync/internal/ctxlog"
	"github.com/vk/jobsync/internal/dag"
)

// ErrNoManifest is returned when no .hcl file was found under the given
// paths.
var ErrNoManifest = errors.New("no workspace manifest found")

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file under the given paths and builds the
// workspace model. The result is validated: one workspace block, unique
// package names, known dependencies and an acyclic dependency graph.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoManifest, paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()

	var (
		workspaces []*workspaceBlock
		packages   []*packageBlock
	)
	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		for _, ws := range root.Workspaces {
			ws.file = file
			workspaces = append(workspaces, ws)
		}
		for _, pkg := range root.Packages {
			pkg.file = file
			packages = append(packages, pkg)
		}
	}

	switch len(workspaces) {
	case 0:
		return nil, fmt.Errorf("no workspace block found in %v", hclFiles)
	case 1:
	default:
		return nil, fmt.Errorf("workspace block declared more than once (%s and %s)", workspaces[0].file, workspaces[1].file)
	}

	model, err := l.translateWorkspace(ctx, workspaces[0])
	if err != nil {
		return nil, err
	}
	for _, pkg := range packages {
		if err := model.AddPackage(l.translatePackage(model.Root, pkg)); err != nil {
			return nil, fmt.Errorf("%s: %w", pkg.file, err)
		}
	}
	if err := validate(model); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.", "root", model.Root, "packages", len(model.Packages), "vcs", model.VCS.String())
	return model, nil
}

// validate rejects dependencies on undeclared packages and dependency
// cycles.
func validate(model *config.Model) error {
	for _, name := range model.Order {
		pkg := model.Packages[name]
		for _, dep := range pkg.Dependencies {
			if _, ok := model.Package(dep); !ok {
				return fmt.Errorf("package %q depends on undeclared package %q", name, dep)
			}
		}
	}
	graph, err := dag.FromDependencies(model.DependencyMap())
	if err != nil {
		return fmt.Errorf("invalid dependency graph: %w", err)
	}
	if err := graph.DetectCycles(); err != nil {
		return fmt.Errorf("invalid dependency graph: %w", err)
	}
	return nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return allFiles, nil
}

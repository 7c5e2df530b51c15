package hcl

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/jobsync/internal/config"
	"github.com/vk/jobsync/internal/ctxlog"
)

// translateWorkspace converts the workspace block into an empty model.
func (l *Loader) translateWorkspace(ctx context.Context, ws *workspaceBlock) (*config.Model, error) {
	root := ws.Root
	manifestDir, err := filepath.Abs(filepath.Dir(ws.file))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve the directory of %s: %w", ws.file, err)
	}
	switch {
	case root == "":
		root = manifestDir
	case !filepath.IsAbs(root):
		root = filepath.Join(manifestDir, root)
	}

	model := config.NewModel(filepath.Clean(root))
	if ws.VCS != nil {
		model.VCS = translateVCS(ws.VCS)
	}

	seed, err := decodeSeedConfig(ctx, ws.SeedConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ws.file, err)
	}
	model.SeedConfig = seed
	return model, nil
}

// translatePackage converts a package block, resolving its directories
// against the workspace root. The source directory defaults to the package
// name and the prefix to the source directory.
func (l *Loader) translatePackage(root string, pkg *packageBlock) *config.Package {
	srcdir := resolvePath(root, pkg.SrcDir, pkg.Name)
	prefix := srcdir
	if pkg.Prefix != "" {
		prefix = resolvePath(root, pkg.Prefix, pkg.Name)
	}

	out := &config.Package{
		Name:         pkg.Name,
		Dependencies: append([]string(nil), pkg.DependsOn...),
		SrcDir:       srcdir,
		Prefix:       prefix,
	}
	if pkg.VCS != nil {
		out.VCS = translateVCS(pkg.VCS)
	}
	return out
}

func translateVCS(v *vcsBlock) config.VCS {
	return config.VCS{Type: v.Type, URL: v.URL, Branch: v.Branch}
}

func resolvePath(root, path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, filepath.FromSlash(path))
}

// decodeSeedConfig evaluates the optional seed_config attribute into a
// string map. Numbers and booleans are converted to their string form.
func decodeSeedConfig(ctx context.Context, expr hcl.Expression) (map[string]string, error) {
	if !isExprDefined(ctx, expr, "seed_config") {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid seed_config: %w", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	converted, err := convert.Convert(val, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("invalid seed_config: must be a map of strings: %w", err)
	}
	if converted.LengthInt() == 0 {
		return nil, nil
	}
	seed := make(map[string]string, converted.LengthInt())
	if err := gocty.FromCtyValue(converted, &seed); err != nil {
		return nil, fmt.Errorf("invalid seed_config: %w", err)
	}
	return seed, nil
}

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder often populates optional fields with non-nil, zero-width
// expression objects, so a simple nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

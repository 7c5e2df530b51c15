package render

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/vk/jobsync/internal/ctxlog"
)

// Option tweaks a single render call.
type Option func(*options)

type options struct {
	allowUnused bool
	indent      int
	escape      bool
}

// AllowUnused disables the unused-parameter check for the call.
func AllowUnused() Option {
	return func(o *options) { o.allowUnused = true }
}

// Indent re-indents every line of the result but the first by n spaces.
func Indent(n int) Option {
	return func(o *options) { o.indent = n }
}

// Escape turns the result into the body of a string literal.
func Escape() Option {
	return func(o *options) { o.escape = true }
}

// Renderer renders templates from a Store. It is safe for concurrent use;
// parsed templates are cached.
type Renderer struct {
	store Store

	mu    sync.Mutex
	cache map[string]*template.Template
}

// New creates a renderer over the given template store.
func New(store Store) *Renderer {
	return &Renderer{
		store: store,
		cache: make(map[string]*template.Template),
	}
}

// HasTemplate reports whether the store holds a template with that name.
func (r *Renderer) HasTemplate(name string) bool {
	return r.store.HasTemplate(name)
}

// VCSSupported reports whether packages using the given VCS type can be
// imported, i.e. whether an import-<vcs>.pipeline template exists.
func (r *Renderer) VCSSupported(vcsType string) bool {
	return r.HasTemplate(ImportTemplate(vcsType))
}

// ImportTemplate is the name of the template importing a VCS type.
func ImportTemplate(vcsType string) string {
	return fmt.Sprintf("import-%s.pipeline", vcsType)
}

// Render evaluates the named template with exactly the given parameters.
func (r *Renderer) Render(ctx context.Context, name string, params Params, opts ...Option) (string, error) {
	return r.execute(ctx, newCall(nil, name, params), opts...)
}

// call is one node of the render tree. Each node owns its parameter bag and
// the set of parameters read so far.
type call struct {
	parent   *call
	template string
	params   Params
	used     map[string]bool
	children []*call
}

func newCall(parent *call, name string, params Params) *call {
	c := &call{
		parent:   parent,
		template: name,
		params:   params.clone(),
		used:     make(map[string]bool, len(params)),
	}
	if parent != nil {
		parent.children = append(parent.children, c)
	}
	return c
}

// path names the call by its position in the tree, e.g.
// "package.pipeline/import-git.pipeline".
func (c *call) path() string {
	if c.parent == nil {
		return c.template
	}
	return c.parent.path() + "/" + c.template
}

func (c *call) param(name string) (any, error) {
	value, ok := c.params[name]
	if !ok {
		return nil, &UnknownParameterError{Template: c.path(), Name: name}
	}
	c.used[name] = true
	return value, nil
}

func (c *call) unused() []string {
	var names []string
	for name := range c.params {
		if !c.used[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (r *Renderer) execute(ctx context.Context, c *call, opts ...Option) (string, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Rendering template.", "template", c.path(), "params", c.params.Names())

	parsed, err := r.parsed(c.template)
	if err != nil {
		return "", err
	}
	tmpl, err := parsed.Clone()
	if err != nil {
		return "", fmt.Errorf("failed to clone template %s: %w", c.template, err)
	}
	tmpl.Funcs(r.funcs(ctx, c))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", c.path(), err)
	}

	if !o.allowUnused {
		if unused := c.unused(); len(unused) > 0 {
			return "", &UnusedParametersError{Template: c.path(), Names: unused}
		}
	}

	out := buf.String()
	if c.parent != nil {
		out = strings.TrimRight(out, "\n")
	}
	if o.indent > 0 {
		out = indent(out, o.indent)
	}
	if o.escape {
		out = escape(out)
	}
	return out, nil
}

// funcs binds the template functions to a render call.
func (r *Renderer) funcs(ctx context.Context, c *call) template.FuncMap {
	nested := func(name string, params Params, opts ...Option) (string, error) {
		return r.execute(ctx, newCall(c, name, params), opts...)
	}
	return template.FuncMap{
		"param": c.param,
		"args":  paramsFromPairs,
		"render": func(name string, params Params) (string, error) {
			return nested(name, params)
		},
		"renderIndent": func(name string, n int, params Params) (string, error) {
			return nested(name, params, Indent(n))
		},
		"renderEscaped": func(name string, params Params) (string, error) {
			return nested(name, params, Escape())
		},
		"quote":      quote,
		"escape":     escape,
		"join":       strings.Join,
		"sortedKeys": sortedKeys,
	}
}

// stubFuncs declares the function names at parse time; every execution
// rebinds them to its own call.
var stubFuncs = template.FuncMap{
	"param":         func(string) (any, error) { return nil, nil },
	"args":          paramsFromPairs,
	"render":        func(string, Params) (string, error) { return "", nil },
	"renderIndent":  func(string, int, Params) (string, error) { return "", nil },
	"renderEscaped": func(string, Params) (string, error) { return "", nil },
	"quote":         quote,
	"escape":        escape,
	"join":          strings.Join,
	"sortedKeys":    sortedKeys,
}

func (r *Renderer) parsed(name string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tmpl, ok := r.cache[name]; ok {
		return tmpl, nil
	}
	text, err := r.store.ReadTemplate(name)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Funcs(stubFuncs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	r.cache[name] = tmpl
	return tmpl, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

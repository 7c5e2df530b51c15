package render

import (
	"fmt"
	"sort"
)

// Params is the parameter set of a single render call, keyed by name.
type Params map[string]any

// Names returns the parameter names in lexical order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// clone copies the bag so that the caller cannot mutate it mid-render.
func (p Params) clone() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// paramsFromPairs implements the `args` template function.
func paramsFromPairs(kv ...any) (Params, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("args: expected key/value pairs, got %d values", len(kv))
	}
	p := make(Params, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("args: key at position %d is a %T, not a string", i, kv[i])
		}
		if _, dup := p[key]; dup {
			return nil, fmt.Errorf("args: parameter %q given twice", key)
		}
		p[key] = kv[i+1]
	}
	return p, nil
}

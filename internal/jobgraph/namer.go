package jobgraph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrJobNameCollision is returned when two distinct names map to the same
// job name, e.g. "a/b" and "a-b".
var ErrJobNameCollision = errors.New("job name collision")

// Namer derives job names from package or logical names.
type Namer struct {
	prefix string
}

// NewNamer creates a namer applying the given prefix verbatim.
func NewNamer(prefix string) Namer {
	return Namer{prefix: prefix}
}

// Prefix returns the configured prefix.
func (n Namer) Prefix() string {
	return n.prefix
}

// ProjectName is the prefix without surrounding dashes and blanks, used as
// a human readable name in job descriptions.
func (n Namer) ProjectName() string {
	return strings.Trim(n.prefix, "- \t")
}

// JobName replaces every '/' in name with '-' and prepends the prefix.
func (n Namer) JobName(name string) string {
	return n.prefix + strings.ReplaceAll(name, "/", "-")
}

// JobNames maps the job name of each given name back to that name. Two
// distinct names sharing a job name fail with ErrJobNameCollision.
func (n Namer) JobNames(names []string) (map[string]string, error) {
	jobs := make(map[string]string, len(names))
	for _, name := range names {
		job := n.JobName(name)
		if other, ok := jobs[job]; ok && other != name {
			return nil, fmt.Errorf("%w: %q and %q both map to job %q", ErrJobNameCollision, other, name, job)
		}
		jobs[job] = name
	}
	return jobs, nil
}

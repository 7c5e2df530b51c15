// Package credentials maps version-control descriptors to the identifiers of
// credentials registered on the Jenkins server.
package credentials

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/vk/jobsync/internal/config"
)

// ErrMalformedCredential is returned when a credential spec string cannot be
// parsed.
var ErrMalformedCredential = errors.New("malformed credential spec")

// ErrUnhandledVCS is returned when no import template handles a VCS type.
var ErrUnhandledVCS = errors.New("unhandled VCS")

// Credential identifies the Jenkins credential to use for every descriptor of
// a given VCS type hosted on a given scheme and host.
type Credential struct {
	VCS    string
	Scheme string
	Host   string
}

// Parse reads a credential of the form "vcs_type:URI", e.g.
// "git:https://github.com".
func Parse(spec string) (Credential, error) {
	vcsType, rawURI, found := strings.Cut(spec, ":")
	if !found || vcsType == "" {
		return Credential{}, fmt.Errorf("%w %q: expected VCS_TYPE:URL", ErrMalformedCredential, spec)
	}
	uri, err := url.Parse(rawURI)
	if err != nil {
		return Credential{}, fmt.Errorf("%w %q: %v", ErrMalformedCredential, spec, err)
	}
	if uri.Scheme == "" || uri.Hostname() == "" {
		return Credential{}, fmt.Errorf("%w %q: URL must have a scheme and a host", ErrMalformedCredential, spec)
	}
	return Credential{VCS: vcsType, Scheme: uri.Scheme, Host: uri.Hostname()}, nil
}

// JenkinsID is the ID under which the credential is expected to be
// registered on the Jenkins server.
func (c Credential) JenkinsID() string {
	return fmt.Sprintf("autoproj-%s-%s-%s", c.VCS, c.Scheme, c.Host)
}

// Matches reports whether the credential applies to the descriptor. Scheme
// and host name are compared verbatim; ports are ignored.
func (c Credential) Matches(vcs config.VCS) bool {
	if vcs.Type != c.VCS {
		return false
	}
	uri, err := url.Parse(vcs.URL)
	if err != nil {
		return false
	}
	return uri.Scheme == c.Scheme && uri.Hostname() == c.Host
}

// String implements fmt.Stringer.
func (c Credential) String() string {
	return fmt.Sprintf("%s:%s://%s", c.VCS, c.Scheme, c.Host)
}

// Set holds the registered credentials, grouped by VCS type in registration
// order.
type Set struct {
	byVCS map[string][]Credential
	order []string
}

// NewSet creates an empty credential set.
func NewSet() *Set {
	return &Set{byVCS: make(map[string][]Credential)}
}

// ParseAll parses every spec and registers the results in a new set.
func ParseAll(specs []string) (*Set, error) {
	set := NewSet()
	for _, spec := range specs {
		c, err := Parse(spec)
		if err != nil {
			return nil, err
		}
		set.Add(c)
	}
	return set, nil
}

// Add registers a credential after the ones already known for its VCS type.
func (s *Set) Add(c Credential) {
	if _, ok := s.byVCS[c.VCS]; !ok {
		s.order = append(s.order, c.VCS)
	}
	s.byVCS[c.VCS] = append(s.byVCS[c.VCS], c)
}

// ByVCS returns the credentials registered for a VCS type.
func (s *Set) ByVCS(vcsType string) []Credential {
	return append([]Credential(nil), s.byVCS[vcsType]...)
}

// For returns the first registered credential matching the descriptor.
func (s *Set) For(vcs config.VCS) (Credential, bool) {
	if s == nil {
		return Credential{}, false
	}
	for _, c := range s.byVCS[vcs.Type] {
		if c.Matches(vcs) {
			return c, true
		}
	}
	return Credential{}, false
}

// IDFor returns the Jenkins ID of the credential matching the descriptor, or
// an empty string when the checkout should be anonymous.
func (s *Set) IDFor(vcs config.VCS) string {
	if c, ok := s.For(vcs); ok {
		return c.JenkinsID()
	}
	return ""
}

// All returns every credential, grouped by VCS type in first-registration
// order.
func (s *Set) All() []Credential {
	if s == nil {
		return nil
	}
	var all []Credential
	for _, vcsType := range s.order {
		all = append(all, s.byVCS[vcsType]...)
	}
	return all
}

// Len returns the number of registered credentials.
func (s *Set) Len() int {
	n := 0
	for _, list := range s.byVCS {
		n += len(list)
	}
	return n
}

// Validate checks every registered VCS type against the supported predicate.
func (s *Set) Validate(supported func(vcsType string) bool) error {
	for _, vcsType := range s.order {
		if !supported(vcsType) {
			return fmt.Errorf("%w: credential for %q, no import template handles this VCS type", ErrUnhandledVCS, vcsType)
		}
	}
	return nil
}

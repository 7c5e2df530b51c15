// Package state records, between runs, which jobs were pushed to the CI
// server. The record is what allows jobs of packages that left the
// workspace to be found and pruned.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vk/jobsync/internal/config"
)

// DefaultFile is the state file name used when none is configured.
const DefaultFile = "jobsync-state.yml"

// currentVersion is the format version written by Save.
const currentVersion = 1

// State is the content of a state file.
type State struct {
	Version   int       `yaml:"version"`
	JobPrefix string    `yaml:"job_prefix"`
	Buildconf *VCS      `yaml:"buildconf,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
	// Jobs maps each managed job name to its package name.
	Jobs map[string]string `yaml:"jobs"`
}

// VCS is the recorded location of the build configuration.
type VCS struct {
	Type   string `yaml:"type"`
	URL    string `yaml:"url"`
	Branch string `yaml:"branch,omitempty"`
}

// New returns an empty state.
func New() *State {
	return &State{Version: currentVersion, Jobs: make(map[string]string)}
}

// Load reads a state file. A missing file yields an empty state.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	s := New()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	if s.Version > currentVersion {
		return nil, fmt.Errorf("state file %s has version %d, newer than the supported %d", path, s.Version, currentVersion)
	}
	if s.Jobs == nil {
		s.Jobs = make(map[string]string)
	}
	return s, nil
}

// Save writes the state file atomically.
func (s *State) Save(path string) error {
	s.Version = currentVersion
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", path, err)
	}
	return nil
}

// SetBuildconf records the location of the build configuration.
func (s *State) SetBuildconf(vcs config.VCS, at time.Time) {
	s.Buildconf = &VCS{Type: vcs.Type, URL: vcs.URL, Branch: vcs.Branch}
	s.UpdatedAt = at
}

// Record adds the given job → package entries.
func (s *State) Record(jobs map[string]string, at time.Time) {
	for job, pkg := range jobs {
		s.Jobs[job] = pkg
	}
	s.UpdatedAt = at
}

// Stale returns the recorded jobs missing from current, sorted.
func (s *State) Stale(current map[string]string) []string {
	var stale []string
	for job := range s.Jobs {
		if _, ok := current[job]; !ok {
			stale = append(stale, job)
		}
	}
	sort.Strings(stale)
	return stale
}

// Forget drops the given jobs from the record.
func (s *State) Forget(jobs []string) {
	for _, job := range jobs {
		delete(s.Jobs, job)
	}
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

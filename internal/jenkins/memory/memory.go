// Package memory provides an in-process implementation of jenkins.Client.
//
// # Purpose
//
// The server keeps job configurations in a map and reproduces the error
// behavior of a real Jenkins: creating a job whose name is taken fails with
// jenkins.ErrJobExists, while reading, updating, deleting or building a
// missing job fails with jenkins.ErrJobNotFound.
//
// It backs the package tests and the -dry-run mode of the CLI, where the
// whole synthesis runs without touching a remote server.
//
// # Concurrency Model
//
// All state is guarded by a single mutex. Runs are sequential, so there is
// no contention to optimize for.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vk/jobsync/internal/ctxlog"
	"github.com/vk/jobsync/internal/jenkins"
)

// Job is the recorded state of a single job.
type Job struct {
	Name   string
	Config string
	// Updates counts successful UpdateJob calls since creation.
	Updates int
	// Builds counts queued builds.
	Builds int
}

// Server is an in-memory Jenkins.
type Server struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// New creates an empty server.
func New() *Server {
	return &Server{jobs: make(map[string]*Job)}
}

func (s *Server) JobExists(ctx context.Context, job string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[job]
	return ok, nil
}

func (s *Server) JobConfig(ctx context.Context, job string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[job]
	if !ok {
		return "", notFound(job)
	}
	return j.Config, nil
}

func (s *Server) CreateJob(ctx context.Context, job, config string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job]; ok {
		return fmt.Errorf("%w: %s", jenkins.ErrJobExists, job)
	}
	s.jobs[job] = &Job{Name: job, Config: config}
	ctxlog.FromContext(ctx).Debug("In-memory job created.", "job", job)
	return nil
}

func (s *Server) UpdateJob(ctx context.Context, job, config string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[job]
	if !ok {
		return notFound(job)
	}
	j.Config = config
	j.Updates++
	ctxlog.FromContext(ctx).Debug("In-memory job updated.", "job", job)
	return nil
}

func (s *Server) DeleteJob(ctx context.Context, job string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job]; !ok {
		return notFound(job)
	}
	delete(s.jobs, job)
	ctxlog.FromContext(ctx).Debug("In-memory job deleted.", "job", job)
	return nil
}

func (s *Server) BuildJob(ctx context.Context, job string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[job]
	if !ok {
		return notFound(job)
	}
	j.Builds++
	ctxlog.FromContext(ctx).Debug("In-memory build queued.", "job", job)
	return nil
}

// Jobs returns the names of all jobs, sorted.
func (s *Server) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Job returns a copy of the recorded state of a job.
func (s *Server) Job(name string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

func notFound(job string) error {
	return fmt.Errorf("%w: %s", jenkins.ErrJobNotFound, job)
}

var _ jenkins.Client = (*Server)(nil)

package jenkins

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrJobNotFound is returned when an operation targets a job the server
	// does not have.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobExists is returned when creating a job whose name is taken.
	ErrJobExists = errors.New("job already exists")
)

// Client is the set of job primitives offered by the CI server. Errors
// reported by the server are returned unchanged.
type Client interface {
	JobExists(ctx context.Context, job string) (bool, error)
	JobConfig(ctx context.Context, job string) (string, error)
	CreateJob(ctx context.Context, job, config string) error
	UpdateJob(ctx context.Context, job, config string) error
	DeleteJob(ctx context.Context, job string) error
	BuildJob(ctx context.Context, job string) error
}

// APIError is a non-successful response of the Jenkins REST API.
type APIError struct {
	Op         string
	Job        string
	StatusCode int
	// Message is the X-Error header when Jenkins sets one, the response body
	// otherwise.
	Message string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("jenkins %s %s: %d %s", e.Op, e.Job, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("jenkins %s %s: %d %s: %s", e.Op, e.Job, e.StatusCode, http.StatusText(e.StatusCode), msg)
}

// Is maps 404 responses to ErrJobNotFound and duplicate-name rejections to
// ErrJobExists.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrJobNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrJobExists:
		return e.StatusCode == http.StatusBadRequest && strings.Contains(e.Message, "already exists")
	}
	return false
}

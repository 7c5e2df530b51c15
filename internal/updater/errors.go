package updater

import (
	"errors"
	"fmt"

	"github.com/vk/jobsync/internal/credentials"
)

var (
	// ErrUnsuitableVCS is returned when the workspace build configuration is
	// not fetched from a remotely reachable repository.
	ErrUnsuitableVCS = errors.New("build configuration is not on a remotely accessible VCS")
	// ErrUnhandledVCS is matched by UnhandledVCSError. It is the same
	// sentinel credential validation reports.
	ErrUnhandledVCS = credentials.ErrUnhandledVCS
)

// UnhandledVCSError reports a package whose VCS type has no import template.
type UnhandledVCSError struct {
	VCS     string
	Package string
}

func (e *UnhandledVCSError) Error() string {
	return fmt.Sprintf("the %s importer, used by %s, is not supported", e.VCS, e.Package)
}

// Is makes errors.Is(err, ErrUnhandledVCS) succeed.
func (e *UnhandledVCSError) Is(target error) bool {
	return target == ErrUnhandledVCS
}

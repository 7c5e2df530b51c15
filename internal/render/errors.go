package render

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownParameter is matched by UnknownParameterError.
	ErrUnknownParameter = errors.New("unknown template parameter")
	// ErrUnusedParameters is matched by UnusedParametersError.
	ErrUnusedParameters = errors.New("unused template parameters")
	// ErrTemplateNotFound is returned by stores for names they do not hold.
	ErrTemplateNotFound = errors.New("template not found")
)

// UnknownParameterError is raised when a template reads a parameter that
// was not supplied to it.
type UnknownParameterError struct {
	Template string
	Name     string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("%s is not a known template parameter of %s", e.Name, e.Template)
}

// Is makes errors.Is(err, ErrUnknownParameter) succeed.
func (e *UnknownParameterError) Is(target error) bool {
	return target == ErrUnknownParameter
}

// UnusedParametersError is raised when a render finishes without having read
// some of its parameters. Names are sorted.
type UnusedParametersError struct {
	Template string
	Names    []string
}

func (e *UnusedParametersError) Error() string {
	return fmt.Sprintf("%d unused parameters in %s: %s", len(e.Names), e.Template, strings.Join(e.Names, ", "))
}

// Is makes errors.Is(err, ErrUnusedParameters) succeed.
func (e *UnusedParametersError) Is(target error) bool {
	return target == ErrUnusedParameters
}

package jenkins

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
)

// ErrNoPipelineElement is returned when a job document has no pipeline
// script element.
var ErrNoPipelineElement = errors.New("job document has no definition/script element")

// pipelinePath locates the pipeline script of a workflow job document.
const pipelinePath = "//definition/script"

// ReplacePipelineScript overwrites the pipeline script embedded in a job
// configuration document.
func ReplacePipelineScript(doc, script string) (string, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromString(doc); err != nil {
		return "", fmt.Errorf("failed to parse job document: %w", err)
	}
	el := tree.FindElement(pipelinePath)
	if el == nil {
		return "", ErrNoPipelineElement
	}
	el.SetText(script)

	out, err := tree.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to serialize job document: %w", err)
	}
	return out, nil
}

// PipelineScript extracts the pipeline script embedded in a job
// configuration document.
func PipelineScript(doc string) (string, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromString(doc); err != nil {
		return "", fmt.Errorf("failed to parse job document: %w", err)
	}
	el := tree.FindElement(pipelinePath)
	if el == nil {
		return "", ErrNoPipelineElement
	}
	return el.Text(), nil
}

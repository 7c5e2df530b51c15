package jenkins

import (
	"context"
	"fmt"

	"github.com/vk/jobsync/internal/ctxlog"
	"github.com/vk/jobsync/internal/render"
)

// Action tells what CreateOrReset did to the remote job.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionRecreated Action = "recreated"
)

// Renderer renders job configuration templates.
type Renderer interface {
	Render(ctx context.Context, name string, params render.Params, opts ...render.Option) (string, error)
}

// Reconciler keeps remote jobs in line with rendered definitions.
type Reconciler struct {
	client   Client
	renderer Renderer
}

// NewReconciler creates a reconciler pushing to client.
func NewReconciler(client Client, renderer Renderer) *Reconciler {
	return &Reconciler{client: client, renderer: renderer}
}

// CreateOrReset renders the job template with params, embeds the pipeline
// script and pushes the result: the job is updated when it exists and
// created otherwise. Calling it repeatedly is safe.
func (r *Reconciler) CreateOrReset(ctx context.Context, job, template string, params render.Params, pipeline string) (Action, error) {
	doc, err := r.document(ctx, template, params, pipeline)
	if err != nil {
		return "", fmt.Errorf("job %s: %w", job, err)
	}

	exists, err := r.client.JobExists(ctx, job)
	if err != nil {
		return "", err
	}
	logger := ctxlog.FromContext(ctx).With("job", job, "template", template)
	if exists {
		logger.Debug("Updating existing job.")
		if err := r.client.UpdateJob(ctx, job, doc); err != nil {
			return "", err
		}
		return ActionUpdated, nil
	}
	logger.Debug("Creating job.")
	if err := r.client.CreateJob(ctx, job, doc); err != nil {
		return "", err
	}
	return ActionCreated, nil
}

// Reset deletes the job if it exists and creates it again from scratch,
// dropping its build history.
func (r *Reconciler) Reset(ctx context.Context, job, template string, params render.Params, pipeline string) (Action, error) {
	doc, err := r.document(ctx, template, params, pipeline)
	if err != nil {
		return "", fmt.Errorf("job %s: %w", job, err)
	}

	exists, err := r.client.JobExists(ctx, job)
	if err != nil {
		return "", err
	}
	action := ActionCreated
	if exists {
		ctxlog.FromContext(ctx).Debug("Deleting job before recreating it.", "job", job)
		if err := r.client.DeleteJob(ctx, job); err != nil {
			return "", err
		}
		action = ActionRecreated
	}
	if err := r.client.CreateJob(ctx, job, doc); err != nil {
		return "", err
	}
	return action, nil
}

// Exists reports whether the job exists remotely.
func (r *Reconciler) Exists(ctx context.Context, job string) (bool, error) {
	return r.client.JobExists(ctx, job)
}

// Config reads the remote configuration of the job.
func (r *Reconciler) Config(ctx context.Context, job string) (string, error) {
	return r.client.JobConfig(ctx, job)
}

// Delete removes the job.
func (r *Reconciler) Delete(ctx context.Context, job string) error {
	return r.client.DeleteJob(ctx, job)
}

// Trigger queues a build of the job.
func (r *Reconciler) Trigger(ctx context.Context, job string) error {
	return r.client.BuildJob(ctx, job)
}

func (r *Reconciler) document(ctx context.Context, template string, params render.Params, pipeline string) (string, error) {
	base, err := r.renderer.Render(ctx, template, params)
	if err != nil {
		return "", err
	}
	return ReplacePipelineScript(base, pipeline)
}

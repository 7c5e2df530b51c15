package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/jobsync/internal/ctxlog"
	"github.com/vk/jobsync/internal/jenkins/memory"
	"github.com/vk/jobsync/internal/state"
)

// Run executes the configured command. The result of the command (job or
// package names) is written to the app output, one per line.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	packages := a.config.Packages
	if len(packages) == 0 {
		packages = a.model.PackageNames()
	}

	var err error
	switch a.config.Command {
	case CommandInit:
		err = a.runInit(ctx, packages)
	case CommandUpdate:
		err = a.runUpdate(ctx, packages)
	case CommandRoots:
		err = a.runRoots(packages)
	default:
		err = fmt.Errorf("unknown command %q", a.config.Command)
	}

	if a.config.DryRun {
		a.reportDryRun()
	}
	if a.config.Pushgateway != "" {
		if pushErr := a.metrics.Push(ctx, a.config.Pushgateway, DefaultMetricsJob); pushErr != nil {
			a.logger.Warn("Failed to push metrics.", "error", pushErr)
			err = errors.Join(err, pushErr)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return err
}

func (a *App) runInit(ctx context.Context, packages []string) error {
	job, err := a.updater.UpdateBuildconf(ctx, packages)
	if err != nil {
		return err
	}
	a.println(job)

	if a.config.Trigger {
		if err := a.updater.Trigger(ctx, []string{job}); err != nil {
			return err
		}
	}

	return a.withState(func(st *state.State) error {
		st.JobPrefix = a.config.JobPrefix
		st.SetBuildconf(a.model.VCS, time.Now().UTC())
		return nil
	})
}

func (a *App) runUpdate(ctx context.Context, packages []string) error {
	current, err := a.updater.JobNames(packages)
	if err != nil {
		return err
	}

	jobs, updateErr := a.updater.Update(ctx, packages)
	for _, job := range jobs {
		a.println(job)
	}

	// Jobs pushed before a failure are recorded too so that a later prune
	// still knows about them.
	stateErr := a.withState(func(st *state.State) error {
		pushed := make(map[string]string, len(jobs))
		for _, job := range jobs {
			pushed[job] = current[job]
		}
		st.JobPrefix = a.config.JobPrefix
		st.Record(pushed, time.Now().UTC())
		if updateErr != nil || !a.config.Prune {
			return nil
		}
		return a.prune(ctx, st)
	})
	if updateErr != nil {
		return errors.Join(updateErr, stateErr)
	}
	if stateErr != nil {
		return stateErr
	}

	if a.config.Trigger {
		return a.triggerRoots(ctx, packages)
	}
	return nil
}

// prune deletes the recorded jobs whose package left the workspace.
func (a *App) prune(ctx context.Context, st *state.State) error {
	managed, err := a.updater.JobNames(a.model.PackageNames())
	if err != nil {
		return err
	}
	stale := st.Stale(managed)
	if len(stale) == 0 {
		a.logger.Debug("No stale job to prune.")
		return nil
	}
	deleted, err := a.updater.Prune(ctx, stale)
	if err != nil {
		st.Forget(deleted)
		return err
	}
	// Jobs already missing on the server are forgotten as well.
	st.Forget(stale)
	return nil
}

func (a *App) triggerRoots(ctx context.Context, packages []string) error {
	roots, err := a.updater.TriggerRoots(packages)
	if err != nil {
		return err
	}
	jobs := make([]string, 0, len(roots))
	for _, root := range roots {
		jobs = append(jobs, a.updater.JobName(root))
	}
	return a.updater.Trigger(ctx, jobs)
}

func (a *App) runRoots(packages []string) error {
	roots, err := a.updater.TriggerRoots(packages)
	if err != nil {
		return err
	}
	for _, root := range roots {
		a.println(root)
	}
	return nil
}

// withState loads the state file, applies fn and saves the result. Without
// a state file, or in a dry run, fn runs against a throwaway state.
func (a *App) withState(fn func(*state.State) error) error {
	path := a.config.StateFile
	if path == "" || a.config.DryRun {
		return fn(state.New())
	}
	st, err := state.Load(path)
	if err != nil {
		return err
	}
	fnErr := fn(st)
	if err := st.Save(path); err != nil {
		return errors.Join(fnErr, err)
	}
	a.logger.Debug("State saved.", "path", path, "jobs", len(st.Jobs))
	return fnErr
}

func (a *App) reportDryRun() {
	server, ok := a.client.(*memory.Server)
	if !ok {
		return
	}
	for _, name := range server.Jobs() {
		job, _ := server.Job(name)
		a.logger.Info("Dry run: job would be pushed.", "job", name, "updates", job.Updates, "builds", job.Builds)
	}
}

func (a *App) println(line string) {
	fmt.Fprintln(a.outW, line)
}

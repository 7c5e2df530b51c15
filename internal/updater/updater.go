// Package updater pushes the job topology of a workspace to the CI server.
//
// Two flows exist. The buildconf flow maintains the single job that checks
// out the workspace build configuration and regenerates the package jobs
// from within Jenkins. The package flow maintains one job per managed
// package, wired to its upstream and downstream jobs.
//
// Packages are processed one at a time in the order given. A batch is
// validated as a whole before the first remote call; after that, the first
// failure aborts the run and leaves already pushed jobs in place. Re-running
// is safe since every job is pushed through CreateOrReset.
package updater

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"time"

	"github.com/vk/jobsync/internal/config"
	"github.com/vk/jobsync/internal/credentials"
	"github.com/vk/jobsync/internal/ctxlog"
	"github.com/vk/jobsync/internal/jenkins"
	"github.com/vk/jobsync/internal/jobgraph"
	"github.com/vk/jobsync/internal/metrics"
	"github.com/vk/jobsync/internal/render"
)

// Template names used by the updater.
const (
	BuildconfJob      = "buildconf"
	BuildconfTemplate = "buildconf.xml"
	BuildconfPipeline = "buildconf.pipeline"
	PackageTemplate   = "package.xml"
	PackagePipeline   = "package.pipeline"

	DefaultGemfile      = "buildconf-Gemfile"
	DevGemfile          = "buildconf-vagrant-Gemfile"
	DefaultArtifactGlob = "**/*"
	DefaultQuietPeriod  = 5
)

// Renderer renders pipeline templates and knows which VCS types can be
// imported.
type Renderer interface {
	Render(ctx context.Context, name string, params render.Params, opts ...render.Option) (string, error)
	VCSSupported(vcsType string) bool
}

// Reconciler pushes rendered jobs to the CI server.
type Reconciler interface {
	CreateOrReset(ctx context.Context, job, template string, params render.Params, pipeline string) (jenkins.Action, error)
	Reset(ctx context.Context, job, template string, params render.Params, pipeline string) (jenkins.Action, error)
	Exists(ctx context.Context, job string) (bool, error)
	Delete(ctx context.Context, job string) error
	Trigger(ctx context.Context, job string) error
}

// Options tune the generated jobs.
type Options struct {
	Namer       jobgraph.Namer
	Credentials *credentials.Set
	// Gemfile is the name of the template used as the bootstrap Gemfile.
	Gemfile string
	// AutoprojInstallPath is a path, relative to the Jenkins workspace, of a
	// local autoproj_install script. When empty the jobs download it.
	AutoprojInstallPath string
	Dev                 bool
	// QuietPeriod is the quiet period of the generated jobs, in seconds.
	QuietPeriod int
	// SeedConfig entries override the ones of the workspace manifest.
	SeedConfig     map[string]string
	ArtifactGlob   string
	WorkflowPlugin string
	// Force deletes jobs before recreating them instead of updating them.
	Force   bool
	Metrics *metrics.Metrics
}

// Updater composes the partitioner, renderer and reconciler.
type Updater struct {
	model      *config.Model
	reconciler Reconciler
	renderer   Renderer
	opts       Options
}

// New creates an updater. Zero options get their defaults.
func New(model *config.Model, reconciler Reconciler, renderer Renderer, opts Options) *Updater {
	if opts.Gemfile == "" {
		opts.Gemfile = DefaultGemfile
	}
	if opts.ArtifactGlob == "" {
		opts.ArtifactGlob = DefaultArtifactGlob
	}
	if opts.Credentials == nil {
		opts.Credentials = credentials.NewSet()
	}
	return &Updater{model: model, reconciler: reconciler, renderer: renderer, opts: opts}
}

// BuildconfJobName is the name of the buildconf job.
func (u *Updater) BuildconfJobName() string {
	return u.opts.Namer.JobName(BuildconfJob)
}

// JobName is the name of the job of a package.
func (u *Updater) JobName(pkg string) string {
	return u.opts.Namer.JobName(pkg)
}

// JobNames maps the job names of the given packages to their package names.
func (u *Updater) JobNames(packages []string) (map[string]string, error) {
	return u.opts.Namer.JobNames(packages)
}

// UpdateBuildconf creates or updates the buildconf job, whose pipeline
// regenerates the jobs of the given packages. It returns the job name.
func (u *Updater) UpdateBuildconf(ctx context.Context, packages []string) (string, error) {
	start := time.Now()
	defer func() { u.opts.Metrics.ObserveRun(time.Since(start)) }()

	if err := u.checkBuildconfVCS(); err != nil {
		return "", err
	}
	names, err := u.resolve(packages)
	if err != nil {
		return "", err
	}

	jobNames := make([]string, 0, len(names))
	for _, name := range names {
		jobNames = append(jobNames, u.opts.Namer.JobName(name))
	}

	vcs := u.model.VCS
	job := u.BuildconfJobName()
	pipeline, err := u.renderer.Render(ctx, BuildconfPipeline, render.Params{
		"vcs":                   vcs,
		"credentials_id":        u.opts.Credentials.IDFor(vcs),
		"vcs_credentials":       u.opts.Credentials.All(),
		"packages":              names,
		"job_names":             jobNames,
		"gemfile":               u.opts.Gemfile,
		"autoproj_install_path": u.opts.AutoprojInstallPath,
		"job_prefix":            u.opts.Namer.Prefix(),
		"dev":                   u.opts.Dev,
		"seed_config":           u.seedConfig(),
	})
	if err != nil {
		u.opts.Metrics.Failure("render")
		return "", fmt.Errorf("failed to render the %s pipeline: %w", job, err)
	}

	if err := u.push(ctx, metrics.KindBuildconf, job, BuildconfTemplate, render.Params{
		"project_name":    u.opts.Namer.ProjectName(),
		"quiet_period":    u.opts.QuietPeriod,
		"workflow_plugin": u.opts.WorkflowPlugin,
	}, pipeline); err != nil {
		return "", err
	}
	return job, nil
}

// Update creates or updates the job of every given package, in order, and
// returns the names of the jobs it pushed. The whole batch is validated
// before the first remote call.
func (u *Updater) Update(ctx context.Context, packages []string) ([]string, error) {
	start := time.Now()
	defer func() { u.opts.Metrics.ObserveRun(time.Since(start)) }()

	names, err := u.resolve(packages)
	if err != nil {
		return nil, err
	}
	if _, err := u.opts.Namer.JobNames(names); err != nil {
		return nil, err
	}
	for _, name := range names {
		pkg, _ := u.model.Package(name)
		if !u.renderer.VCSSupported(pkg.VCS.Type) {
			return nil, &UnhandledVCSError{VCS: pkg.VCS.Type, Package: name}
		}
	}
	if err := u.checkBuildconfVCS(); err != nil {
		return nil, err
	}

	partitioner, err := jobgraph.NewPartitioner(u.model, u.opts.Namer, names)
	if err != nil {
		return nil, err
	}

	jobs := make([]string, 0, len(names))
	for _, name := range names {
		pkg, _ := u.model.Package(name)
		job, err := u.updatePackage(ctx, partitioner, pkg)
		if err != nil {
			return jobs, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (u *Updater) updatePackage(ctx context.Context, partitioner *jobgraph.Partitioner, pkg *config.Package) (string, error) {
	job := u.opts.Namer.JobName(pkg.Name)
	packageDir, installDir, err := u.layout(pkg)
	if err != nil {
		return "", err
	}

	pipeline, err := u.renderer.Render(ctx, PackagePipeline, render.Params{
		"buildconf_vcs":            u.model.VCS,
		"buildconf_credentials_id": u.opts.Credentials.IDFor(u.model.VCS),
		"vcs":                      pkg.VCS,
		"credentials_id":           u.opts.Credentials.IDFor(pkg.VCS),
		"package_name":             pkg.Name,
		"package_dir":              packageDir,
		"install_dir":              installDir,
		"artifact_glob":            u.opts.ArtifactGlob,
		"job_name":                 job,
		"upstream_jobs":            partitioner.UpstreamJobs(pkg.Name),
		"downstream_jobs":          partitioner.DownstreamJobs(pkg.Name),
		"gemfile":                  u.opts.Gemfile,
		"autoproj_install_path":    u.opts.AutoprojInstallPath,
		"dev":                      u.opts.Dev,
	})
	if err != nil {
		u.opts.Metrics.Failure("render")
		return "", fmt.Errorf("failed to render the %s pipeline: %w", job, err)
	}

	err = u.push(ctx, metrics.KindPackage, job, PackageTemplate, render.Params{
		"package_name":    pkg.Name,
		"project_name":    u.opts.Namer.ProjectName(),
		"quiet_period":    u.opts.QuietPeriod,
		"workflow_plugin": u.opts.WorkflowPlugin,
	}, pipeline)
	return job, err
}

// layout computes the checkout and install directories of a package,
// relative to the workspace root. A package installed into its own source
// directory gets install/<name> so that its artifacts are not archived over
// its sources.
func (u *Updater) layout(pkg *config.Package) (packageDir, installDir string, err error) {
	packageDir, err = filepath.Rel(u.model.Root, pkg.SrcDir)
	if err != nil {
		return "", "", fmt.Errorf("package %s: %w", pkg.Name, err)
	}
	prefix := pkg.Prefix
	if prefix == "" || filepath.Clean(prefix) == filepath.Clean(pkg.SrcDir) {
		return filepath.ToSlash(packageDir), "install/" + pkg.Name, nil
	}
	installDir, err = filepath.Rel(u.model.Root, prefix)
	if err != nil {
		return "", "", fmt.Errorf("package %s: %w", pkg.Name, err)
	}
	return filepath.ToSlash(packageDir), filepath.ToSlash(installDir), nil
}

func (u *Updater) push(ctx context.Context, kind, job, template string, params render.Params, pipeline string) error {
	logger := ctxlog.FromContext(ctx)

	var (
		action jenkins.Action
		err    error
	)
	if u.opts.Force {
		action, err = u.reconciler.Reset(ctx, job, template, params, pipeline)
	} else {
		action, err = u.reconciler.CreateOrReset(ctx, job, template, params, pipeline)
	}
	if err != nil {
		u.opts.Metrics.Failure("reconcile")
		return fmt.Errorf("failed to push job %s: %w", job, err)
	}
	u.opts.Metrics.JobReconciled(kind, string(action))
	logger.Info("Job synchronized.", "job", job, "action", action)
	return nil
}

// TriggerRoots returns the packages of the list that no other listed
// package depends on directly, in list order.
func (u *Updater) TriggerRoots(packages []string) ([]string, error) {
	partitioner, err := jobgraph.NewPartitioner(u.model, u.opts.Namer, packages)
	if err != nil {
		return nil, err
	}
	return partitioner.TriggerRoots(packages)
}

// Trigger queues a build of each job, in order.
func (u *Updater) Trigger(ctx context.Context, jobs []string) error {
	logger := ctxlog.FromContext(ctx)
	for _, job := range jobs {
		if err := u.reconciler.Trigger(ctx, job); err != nil {
			u.opts.Metrics.Failure("trigger")
			return fmt.Errorf("failed to trigger job %s: %w", job, err)
		}
		u.opts.Metrics.JobTriggered()
		logger.Info("Job triggered.", "job", job)
	}
	return nil
}

// Prune deletes the given jobs when they exist and returns the names of
// those actually deleted.
func (u *Updater) Prune(ctx context.Context, jobs []string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	var deleted []string
	for _, job := range jobs {
		exists, err := u.reconciler.Exists(ctx, job)
		if err != nil {
			u.opts.Metrics.Failure("prune")
			return deleted, err
		}
		if !exists {
			logger.Debug("Stale job already gone.", "job", job)
			continue
		}
		if err := u.reconciler.Delete(ctx, job); err != nil {
			u.opts.Metrics.Failure("prune")
			return deleted, fmt.Errorf("failed to delete job %s: %w", job, err)
		}
		u.opts.Metrics.JobPruned()
		logger.Info("Stale job deleted.", "job", job)
		deleted = append(deleted, job)
	}
	return deleted, nil
}

// checkBuildconfVCS verifies that jobs can check out the build
// configuration: it must be remotely reachable and importable.
func (u *Updater) checkBuildconfVCS() error {
	vcs := u.model.VCS
	if vcs.IsNone() || vcs.IsLocal() {
		return fmt.Errorf("%w: %s", ErrUnsuitableVCS, vcs)
	}
	if !u.renderer.VCSSupported(vcs.Type) {
		return &UnhandledVCSError{VCS: vcs.Type, Package: BuildconfJob}
	}
	return nil
}

// resolve checks that every name is a workspace package and drops
// duplicates, keeping the first occurrence.
func (u *Updater) resolve(packages []string) ([]string, error) {
	seen := make(map[string]bool, len(packages))
	names := make([]string, 0, len(packages))
	for _, name := range packages {
		if _, ok := u.model.Package(name); !ok {
			return nil, fmt.Errorf("%w: %s", jobgraph.ErrPackageNotFound, name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

func (u *Updater) seedConfig() map[string]string {
	seed := make(map[string]string, len(u.model.SeedConfig)+len(u.opts.SeedConfig))
	maps.Copy(seed, u.model.SeedConfig)
	maps.Copy(seed, u.opts.SeedConfig)
	return seed
}

package updater

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/jobsync/internal/config"
	"github.com/vk/jobsync/internal/credentials"
	"github.com/vk/jobsync/internal/ctxlog"
	"github.com/vk/jobsync/internal/jenkins"
	"github.com/vk/jobsync/internal/jenkins/memory"
	"github.com/vk/jobsync/internal/jobgraph"
	"github.com/vk/jobsync/internal/metrics"
	"github.com/vk/jobsync/internal/render"
	"github.com/vk/jobsync/internal/templates"
)

type fixture struct {
	ctx     context.Context
	model   *config.Model
	server  *memory.Server
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := config.NewModel("/ws")
	m.VCS = config.VCS{Type: "git", URL: "https://github.com/rock-core/buildconf", Branch: "master"}
	m.SeedConfig = map[string]string{"osdeps_mode": "all"}

	add := func(name, vcsType, url, prefix string, deps ...string) {
		srcdir := "/ws/" + name
		if prefix == "" {
			prefix = srcdir
		}
		require.NoError(t, m.AddPackage(&config.Package{
			Name:         name,
			Dependencies: deps,
			VCS:          config.VCS{Type: vcsType, URL: url},
			SrcDir:       srcdir,
			Prefix:       prefix,
		}))
	}
	add("base/cmake", "git", "https://github.com/rock-core/base-cmake", "/ws/install")
	add("base/logging", "git", "https://github.com/rock-core/base-logging", "", "base/cmake")
	add("gui/vizkit3d", "svn", "https://svn.example.org/vizkit3d", "/ws/install")
	add("base/types", "git", "https://github.com/rock-core/base-types", "/ws/install", "base/logging", "gui/vizkit3d")
	add("tools/hgtool", "hg", "https://hg.example.org/tool", "/ws/install")

	return &fixture{
		ctx:     ctxlog.Discard(context.Background()),
		model:   m,
		server:  memory.New(),
		metrics: metrics.New(),
	}
}

func (f *fixture) updater(t *testing.T, mutate ...func(*Options)) *Updater {
	t.Helper()
	creds, err := credentials.ParseAll([]string{"git:https://github.com"})
	require.NoError(t, err)

	opts := Options{
		Namer:          jobgraph.NewNamer("rock-"),
		Credentials:    creds,
		QuietPeriod:    DefaultQuietPeriod,
		WorkflowPlugin: "2.40",
		Metrics:        f.metrics,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	renderer := render.New(templates.Store())
	return New(f.model, jenkins.NewReconciler(f.server, renderer), renderer, opts)
}

func (f *fixture) pipeline(t *testing.T, job string) string {
	t.Helper()
	j, ok := f.server.Job(job)
	require.True(t, ok, "job %s exists", job)
	script, err := jenkins.PipelineScript(j.Config)
	require.NoError(t, err)
	return script
}

func TestUpdateBuildconf(t *testing.T) {
	f := newFixture(t)
	u := f.updater(t)

	job, err := u.UpdateBuildconf(f.ctx, []string{"base/cmake", "base/logging"})
	require.NoError(t, err)
	assert.Equal(t, "rock-buildconf", job)

	script := f.pipeline(t, job)
	assert.Contains(t, script, "def packages = ['base/cmake', 'base/logging']")
	assert.Contains(t, script, "def jobNames = ['rock-base-cmake', 'rock-base-logging']")
	assert.Contains(t, script, "def jobPrefix = 'rock-'")
	assert.Contains(t, script, "def vcsCredentials = ['git:https://github.com']")
	assert.Contains(t, script, "credentialsId: 'autoproj-git-https-github.com'")
	assert.Contains(t, script, `osdeps_mode: all\n`)
	assert.Contains(t, script, "raw.githubusercontent.com/rock-core/autoproj")

	j, _ := f.server.Job(job)
	assert.Contains(t, j.Config, "<quietPeriod>5</quietPeriod>")
	assert.Contains(t, j.Config, "workflow-cps@2.40")

	t.Run("second run updates the job", func(t *testing.T) {
		_, err := u.UpdateBuildconf(f.ctx, []string{"base/cmake"})
		require.NoError(t, err)
		j, _ := f.server.Job(job)
		assert.Equal(t, 1, j.Updates)
		assert.Contains(t, f.pipeline(t, job), "def packages = ['base/cmake']")

		expected := `
# HELP jobsync_jobs_reconciled_total Number of jobs pushed to the CI server, by kind and action.
# TYPE jobsync_jobs_reconciled_total counter
jobsync_jobs_reconciled_total{action="created",kind="buildconf"} 1
jobsync_jobs_reconciled_total{action="updated",kind="buildconf"} 1
`
		assert.NoError(t, testutil.GatherAndCompare(f.metrics.Registry(), strings.NewReader(expected), "jobsync_jobs_reconciled_total"))
	})
}

func TestUpdateBuildconf_Options(t *testing.T) {
	f := newFixture(t)
	u := f.updater(t, func(o *Options) {
		o.Dev = true
		o.Gemfile = DevGemfile
		o.AutoprojInstallPath = "/opt/autoproj/bin/autoproj_install"
		o.SeedConfig = map[string]string{"osdeps_mode": "none", "separate_prefixes": "true"}
	})

	job, err := u.UpdateBuildconf(f.ctx, nil)
	require.NoError(t, err)

	script := f.pipeline(t, job)
	assert.Contains(t, script, "jenkins update --dev")
	assert.Contains(t, script, `path: \"/opt/autoproj\"`)
	assert.Contains(t, script, `sh "cp /opt/autoproj/bin/autoproj_install autoproj_install"`)
	assert.Contains(t, script, `osdeps_mode: none\nseparate_prefixes: true\n`)
	assert.Contains(t, script, "def packages = []")
}

func TestUpdateBuildconf_UnsuitableVCS(t *testing.T) {
	for _, vcs := range []config.VCS{
		{},
		{Type: "none"},
		{Type: "local", URL: "/srv/buildconf"},
		{Type: "git", URL: "file:///srv/buildconf"},
	} {
		t.Run(vcs.String(), func(t *testing.T) {
			f := newFixture(t)
			f.model.VCS = vcs
			u := f.updater(t)

			_, err := u.UpdateBuildconf(f.ctx, nil)
			assert.ErrorIs(t, err, ErrUnsuitableVCS)
			_, err = u.Update(f.ctx, []string{"base/cmake"})
			assert.ErrorIs(t, err, ErrUnsuitableVCS)
			assert.Empty(t, f.server.Jobs())
		})
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	u := f.updater(t)

	jobs, err := u.Update(f.ctx, []string{"base/cmake", "base/logging", "gui/vizkit3d", "base/types", "base/cmake"})
	require.NoError(t, err)
	assert.Equal(t, []string{"rock-base-cmake", "rock-base-logging", "rock-gui-vizkit3d", "rock-base-types"}, jobs)
	assert.Equal(t, []string{"rock-base-cmake", "rock-base-logging", "rock-base-types", "rock-gui-vizkit3d"}, f.server.Jobs())

	t.Run("upstream and downstream jobs", func(t *testing.T) {
		script := f.pipeline(t, "rock-base-types")
		assert.Contains(t, script, "def upstreamJobs = ['rock-base-cmake': 'base/cmake', 'rock-base-logging': 'base/logging', 'rock-gui-vizkit3d': 'gui/vizkit3d']")
		assert.Contains(t, script, "def downstreamJobs = [:]")

		script = f.pipeline(t, "rock-base-cmake")
		assert.Contains(t, script, "def upstreamJobs = [:]")
		assert.Contains(t, script, "def downstreamJobs = ['rock-base-logging': 'base/logging', 'rock-base-types': 'base/types']")
	})

	t.Run("checkout and install directories", func(t *testing.T) {
		script := f.pipeline(t, "rock-base-cmake")
		assert.Contains(t, script, "def packageDir = 'base/cmake'")
		assert.Contains(t, script, "def installDir = 'install'")

		script = f.pipeline(t, "rock-base-logging")
		assert.Contains(t, script, "def installDir = 'install/base/logging'")
	})

	t.Run("credentials are resolved per package", func(t *testing.T) {
		script := f.pipeline(t, "rock-gui-vizkit3d")
		assert.Contains(t, script, "$class: 'SubversionSCM'")
		assert.Contains(t, script, "credentialsId: 'autoproj-git-https-github.com'", "buildconf checkout is authenticated")
		assert.Equal(t, 1, strings.Count(script, "credentialsId"), "svn checkout is anonymous")
	})

	t.Run("job descriptions", func(t *testing.T) {
		j, _ := f.server.Job("rock-base-types")
		assert.Contains(t, j.Config, "<description>Builds base/types in the rock workspace</description>")
	})

	t.Run("re-running updates every job", func(t *testing.T) {
		_, err := u.Update(f.ctx, []string{"base/cmake", "base/logging"})
		require.NoError(t, err)
		j, _ := f.server.Job("rock-base-cmake")
		assert.Equal(t, 1, j.Updates)

		script := f.pipeline(t, "rock-base-cmake")
		assert.Contains(t, script, "def downstreamJobs = ['rock-base-logging': 'base/logging']", "downstream is restricted to the managed set")
	})
}

func TestUpdate_BatchValidation(t *testing.T) {
	t.Run("unsupported VCS aborts the whole batch", func(t *testing.T) {
		f := newFixture(t)
		u := f.updater(t)

		_, err := u.Update(f.ctx, []string{"base/cmake", "tools/hgtool"})
		require.ErrorIs(t, err, ErrUnhandledVCS)

		var unhandled *UnhandledVCSError
		require.True(t, errors.As(err, &unhandled))
		assert.Equal(t, "hg", unhandled.VCS)
		assert.Equal(t, "tools/hgtool", unhandled.Package)
		assert.Empty(t, f.server.Jobs())
	})

	t.Run("unknown packages", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.updater(t).Update(f.ctx, []string{"base/cmake", "missing"})
		assert.ErrorIs(t, err, jobgraph.ErrPackageNotFound)
		assert.Empty(t, f.server.Jobs())
	})

	t.Run("job name collisions", func(t *testing.T) {
		f := newFixture(t)
		for _, name := range []string{"a/b", "a-b"} {
			require.NoError(t, f.model.AddPackage(&config.Package{
				Name:   name,
				VCS:    config.VCS{Type: "git", URL: "https://github.com/x/" + name},
				SrcDir: "/ws/" + name,
			}))
		}
		_, err := f.updater(t).Update(f.ctx, []string{"a/b", "a-b"})
		assert.ErrorIs(t, err, jobgraph.ErrJobNameCollision)
		assert.Empty(t, f.server.Jobs())
	})
}

func TestUpdate_Force(t *testing.T) {
	f := newFixture(t)
	_, err := f.updater(t).Update(f.ctx, []string{"base/cmake"})
	require.NoError(t, err)
	require.NoError(t, f.updater(t).Trigger(f.ctx, []string{"rock-base-cmake"}))

	forced := f.updater(t, func(o *Options) { o.Force = true })
	_, err = forced.Update(f.ctx, []string{"base/cmake"})
	require.NoError(t, err)

	j, ok := f.server.Job("rock-base-cmake")
	require.True(t, ok)
	assert.Zero(t, j.Builds)
	assert.Zero(t, j.Updates)
}

func TestTriggerAndPrune(t *testing.T) {
	f := newFixture(t)
	u := f.updater(t)

	_, err := u.Update(f.ctx, []string{"base/cmake", "base/logging", "gui/vizkit3d"})
	require.NoError(t, err)

	roots, err := u.TriggerRoots([]string{"base/cmake", "base/logging", "gui/vizkit3d"})
	require.NoError(t, err)
	assert.Equal(t, []string{"base/cmake", "gui/vizkit3d"}, roots)

	_, err = u.TriggerRoots([]string{"missing"})
	assert.ErrorIs(t, err, jobgraph.ErrPackageNotFound)

	require.NoError(t, u.Trigger(f.ctx, []string{"rock-base-cmake", "rock-gui-vizkit3d"}))
	j, _ := f.server.Job("rock-base-cmake")
	assert.Equal(t, 1, j.Builds)

	err = u.Trigger(f.ctx, []string{"rock-missing"})
	assert.ErrorIs(t, err, jenkins.ErrJobNotFound)

	deleted, err := u.Prune(f.ctx, []string{"rock-gui-vizkit3d", "rock-long-gone"})
	require.NoError(t, err)
	assert.Equal(t, []string{"rock-gui-vizkit3d"}, deleted)
	assert.Equal(t, []string{"rock-base-cmake", "rock-base-logging"}, f.server.Jobs())

	expected := `
# HELP jobsync_jobs_pruned_total Number of stale jobs deleted from the CI server.
# TYPE jobsync_jobs_pruned_total counter
jobsync_jobs_pruned_total 1
# HELP jobsync_jobs_triggered_total Number of builds queued on the CI server.
# TYPE jobsync_jobs_triggered_total counter
jobsync_jobs_triggered_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(f.metrics.Registry(), strings.NewReader(expected),
		"jobsync_jobs_pruned_total", "jobsync_jobs_triggered_total"))
}

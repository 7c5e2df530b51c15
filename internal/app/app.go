package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/vk/jobsync/internal/config"
	"github.com/vk/jobsync/internal/credentials"
	"github.com/vk/jobsync/internal/ctxlog"
	"github.com/vk/jobsync/internal/jenkins"
	"github.com/vk/jobsync/internal/jenkins/memory"
	"github.com/vk/jobsync/internal/jobgraph"
	"github.com/vk/jobsync/internal/metrics"
	"github.com/vk/jobsync/internal/render"
	"github.com/vk/jobsync/internal/templates"
	"github.com/vk/jobsync/internal/updater"
)

// Option customizes an App.
type Option func(*App)

// WithClient makes the app talk to the given client instead of building one
// from the configuration.
func WithClient(client jenkins.Client) Option {
	return func(a *App) { a.client = client }
}

// WithLogOutput sends log records to w instead of the app output.
func WithLogOutput(w io.Writer) Option {
	return func(a *App) { a.logW = w }
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logW    io.Writer
	logger  *slog.Logger
	config  *Config
	model   *config.Model
	client  jenkins.Client
	metrics *metrics.Metrics
	updater *updater.Updater
}

// NewApp loads the workspace and wires every component of a run.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	a := &App{outW: outW, logW: outW, config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = newLogger(cfg.LogLevel, cfg.LogFormat, a.logW)
	ctx := ctxlog.WithLogger(context.Background(), a.logger)
	a.logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.WorkspacePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	a.model = model
	a.logger.Debug("Workspace loaded.", "root", model.Root, "packages", len(model.Order))

	renderer := render.New(templateStore(cfg.TemplatesPath))

	creds, err := credentials.ParseAll(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	if err := creds.Validate(renderer.VCSSupported); err != nil {
		return nil, err
	}

	if a.client == nil {
		a.client, err = newClient(cfg)
		if err != nil {
			return nil, err
		}
	}

	gemfile := updater.DefaultGemfile
	if cfg.Dev {
		gemfile = updater.DevGemfile
	}

	a.metrics = metrics.New()
	a.updater = updater.New(model, jenkins.NewReconciler(a.client, renderer), renderer, updater.Options{
		Namer:               jobgraph.NewNamer(cfg.JobPrefix),
		Credentials:         creds,
		Gemfile:             gemfile,
		AutoprojInstallPath: cfg.AutoprojInstallPath,
		Dev:                 cfg.Dev,
		QuietPeriod:         cfg.QuietPeriod,
		SeedConfig:          cfg.SeedConfig,
		WorkflowPlugin:      cfg.WorkflowPlugin,
		Force:               cfg.Force,
		Metrics:             a.metrics,
	})
	a.logger.Debug("App wired.", "credentials", creds.Len(), "dry_run", cfg.DryRun)

	return a, nil
}

// Model returns the loaded workspace. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Client returns the CI server client in use.
func (a *App) Client() jenkins.Client {
	return a.client
}

// Metrics returns the metrics of the run.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Close releases the resources held by the client.
func (a *App) Close() error {
	if c, ok := a.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// templateStore layers the templates of dir, if any, over the embedded ones.
func templateStore(dir string) render.Store {
	if dir == "" {
		return templates.Store()
	}
	return render.Layered{render.NewBillyStore(osfs.New(dir)), templates.Store()}
}

func newClient(cfg *Config) (jenkins.Client, error) {
	if cfg.DryRun {
		return memory.New(), nil
	}
	password, err := readPassword(cfg.PasswordFile)
	if err != nil {
		return nil, err
	}
	return jenkins.NewHTTPClient(jenkins.HTTPConfig{
		URL:      cfg.JenkinsURL,
		Username: cfg.Username,
		Password: password,
		Timeout:  cfg.Timeout,
	}), nil
}

func readPassword(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read password file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

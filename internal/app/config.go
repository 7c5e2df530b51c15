package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Commands understood by App.Run.
const (
	CommandInit   = "init"
	CommandUpdate = "update"
	CommandRoots  = "roots"
)

// Defaults applied by the command line.
const (
	DefaultWorkflowPlugin = "2.40"
	DefaultTimeout        = 30 * time.Second
	DefaultMetricsJob     = "jobsync"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command string
	// JenkinsURL is the base URL of the CI server. Unused by roots and by
	// dry runs.
	JenkinsURL string
	// Packages restricts the command to these packages. Empty means every
	// package of the workspace.
	Packages []string

	WorkspacePath string // hcl manifest file or directory
	TemplatesPath string // optional template overrides

	JobPrefix    string
	Username     string
	PasswordFile string
	Credentials  []string // <vcs>:<scheme>://<host>

	Trigger             bool
	Force               bool
	Dev                 bool
	QuietPeriod         int
	SeedConfig          map[string]string
	AutoprojInstallPath string
	WorkflowPlugin      string

	StateFile string
	Prune     bool

	Timeout     time.Duration
	Pushgateway string
	DryRun      bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CommandInit, CommandUpdate:
		if cfg.JenkinsURL == "" && !cfg.DryRun {
			return nil, fmt.Errorf("the %s command requires the Jenkins URL", cfg.Command)
		}
	case CommandRoots:
	case "":
		return nil, errors.New("a command is required")
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	if cfg.WorkspacePath == "" {
		return nil, errors.New("WorkspacePath is a required configuration field and cannot be empty")
	}
	if cfg.QuietPeriod < 0 {
		return nil, fmt.Errorf("quiet period must not be negative, got %d", cfg.QuietPeriod)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout)
	}
	if cfg.Prune && cfg.StateFile == "" {
		return nil, errors.New("pruning requires a state file")
	}

	if cfg.WorkflowPlugin == "" {
		cfg.WorkflowPlugin = DefaultWorkflowPlugin
	}
	if _, err := semver.NewVersion(cfg.WorkflowPlugin); err != nil {
		return nil, fmt.Errorf("invalid workflow plugin version %q: %w", cfg.WorkflowPlugin, err)
	}

	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	return &cfg, nil
}

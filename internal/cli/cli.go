package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/jobsync/internal/app"
	"github.com/vk/jobsync/internal/state"
	"github.com/vk/jobsync/internal/updater"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

const usageText = `
jobsync - Generates and maintains CI jobs for the packages of a workspace.

Usage:
  jobsync COMMAND [options] [ARGS...]

Commands:
  init URL [PACKAGES...]
    Create or update the buildconf job on the Jenkins server at URL.
  update URL [PACKAGES...]
    Create or update the jobs of the given packages (all by default).
  roots [PACKAGES...]
    Print the packages of the list that depend on no other listed package.

Options (must precede the arguments):
`

// stringList collects the values of a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// keyValues collects key=value pairs of a repeatable flag.
type keyValues map[string]string

func (kv keyValues) String() string {
	pairs := make([]string, 0, len(kv))
	for k, v := range kv {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (kv keyValues) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	kv[key] = value
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("jobsync", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usageText)
		flagSet.PrintDefaults()
	}

	if len(args) == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	command := args[0]
	switch command {
	case "-h", "-help", "--help", "help":
		flagSet.Usage()
		return nil, true, nil
	case app.CommandInit, app.CommandUpdate, app.CommandRoots:
	default:
		if strings.HasPrefix(command, "-") {
			return nil, false, usageError("the command must come first, got %s", command)
		}
		return nil, false, usageError("unknown command %q", command)
	}

	var (
		credentials stringList
		seedConfig  = keyValues{}
	)
	workspaceFlag := flagSet.String("workspace", ".", "Path to the workspace manifest file or directory.")
	wFlag := flagSet.String("w", "", "Path to the workspace manifest file or directory (shorthand).")
	jobPrefixFlag := flagSet.String("job-prefix", "", "Prefix prepended to every job name.")
	usernameFlag := flagSet.String("username", "", "Jenkins user name.")
	passwordFileFlag := flagSet.String("password-file", "", "File holding the Jenkins password or API token.")
	flagSet.Var(&credentials, "credential", "VCS credential as vcs:scheme://host. Repeatable.")
	templatesFlag := flagSet.String("templates", "", "Directory of templates overriding the built-in ones.")
	triggerFlag := flagSet.Bool("trigger", false, "Trigger the pushed jobs (the trigger roots for update).")
	forceFlag := flagSet.Bool("force", false, "Delete and recreate jobs instead of updating them.")
	devFlag := flagSet.Bool("dev", false, "Generate jobs for a development setup of the tooling.")
	quietPeriodFlag := flagSet.Int("quiet-period", updater.DefaultQuietPeriod, "Quiet period of the generated jobs, in seconds.")
	flagSet.Var(seedConfig, "seed-config", "Bootstrap setting as key=value, overriding the manifest. Repeatable.")
	installPathFlag := flagSet.String("autoproj-install", "", "Path of a local bootstrap script, relative to the job workspace.")
	stateFileFlag := flagSet.String("state-file", "", "File recording the pushed jobs (e.g. "+state.DefaultFile+").")
	pruneFlag := flagSet.Bool("prune", false, "Delete recorded jobs whose package left the workspace. Requires -state-file.")
	workflowFlag := flagSet.String("workflow-plugin", app.DefaultWorkflowPlugin, "Version of the Jenkins workflow plugins.")
	timeoutFlag := flagSet.Duration("timeout", app.DefaultTimeout, "Timeout of a single Jenkins request. 0 is none.")
	pushgatewayFlag := flagSet.String("pushgateway", "", "Prometheus Pushgateway URL receiving the run metrics.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Render and reconcile against an in-memory server.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.", "command", command)

	positional := flagSet.Args()
	var url string
	if command != app.CommandRoots {
		if len(positional) == 0 {
			if !*dryRunFlag {
				return nil, false, usageError("the %s command requires the Jenkins URL", command)
			}
		} else {
			url, positional = positional[0], positional[1:]
		}
	}

	workspace := *workspaceFlag
	if *wFlag != "" {
		workspace = *wFlag
	}

	config, err := app.NewConfig(app.Config{
		Command:             command,
		JenkinsURL:          url,
		Packages:            positional,
		WorkspacePath:       workspace,
		TemplatesPath:       *templatesFlag,
		JobPrefix:           *jobPrefixFlag,
		Username:            *usernameFlag,
		PasswordFile:        *passwordFileFlag,
		Credentials:         credentials,
		Trigger:             *triggerFlag,
		Force:               *forceFlag,
		Dev:                 *devFlag,
		QuietPeriod:         *quietPeriodFlag,
		SeedConfig:          seedConfig,
		AutoprojInstallPath: *installPathFlag,
		WorkflowPlugin:      *workflowFlag,
		StateFile:           *stateFileFlag,
		Prune:               *pruneFlag,
		Timeout:             *timeoutFlag,
		Pushgateway:         *pushgatewayFlag,
		DryRun:              *dryRunFlag,
		LogFormat:           strings.ToLower(*logFormatFlag),
		LogLevel:            strings.ToLower(*logLevelFlag),
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

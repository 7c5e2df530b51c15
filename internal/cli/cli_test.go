package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/jobsync/internal/app"
)

func TestParse_Update(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{
		"update",
		"-w", "ws",
		"-job-prefix", "rock-",
		"-credential", "git:https://github.com",
		"-credential", "svn:https://svn.example.org",
		"-seed-config", "osdeps_mode=all",
		"-seed-config", "empty=",
		"-trigger",
		"-timeout", "5s",
		"-state-file", "state.yml",
		"-prune",
		"http://jenkins.example.org",
		"base/cmake", "base/logging",
	}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, app.CommandUpdate, cfg.Command)
	assert.Equal(t, "http://jenkins.example.org", cfg.JenkinsURL)
	assert.Equal(t, []string{"base/cmake", "base/logging"}, cfg.Packages)
	assert.Equal(t, "ws", cfg.WorkspacePath)
	assert.Equal(t, "rock-", cfg.JobPrefix)
	assert.Equal(t, []string{"git:https://github.com", "svn:https://svn.example.org"}, cfg.Credentials)
	assert.Equal(t, map[string]string{"osdeps_mode": "all", "empty": ""}, cfg.SeedConfig)
	assert.True(t, cfg.Trigger)
	assert.True(t, cfg.Prune)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.QuietPeriod)
	assert.Equal(t, app.DefaultWorkflowPlugin, cfg.WorkflowPlugin)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, out.String())
}

func TestParse_Defaults(t *testing.T) {
	cfg, _, err := Parse([]string{"roots"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.WorkspacePath)
	assert.Empty(t, cfg.JenkinsURL)
	assert.Empty(t, cfg.Packages)

	cfg, _, err = Parse([]string{"init", "-dry-run"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, cfg.DryRun)
	assert.Empty(t, cfg.JenkinsURL)
}

func TestParse_Help(t *testing.T) {
	for _, args := range [][]string{nil, {"-h"}, {"help"}, {"update", "-h"}} {
		out := &bytes.Buffer{}
		cfg, shouldExit, err := Parse(args, out)
		require.NoError(t, err, "args %v", args)
		assert.True(t, shouldExit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{name: "unknown command", args: []string{"deploy"}, errMsg: `unknown command "deploy"`},
		{name: "flag before command", args: []string{"-trigger", "update"}, errMsg: "the command must come first"},
		{name: "unknown flag", args: []string{"update", "-nope"}, errMsg: "flag provided but not defined: -nope"},
		{name: "missing url", args: []string{"update"}, errMsg: "requires the Jenkins URL"},
		{name: "bad seed config", args: []string{"init", "-seed-config", "novalue", "http://j"}, errMsg: "expected key=value"},
		{name: "bad log level", args: []string{"roots", "-log-level", "trace"}, errMsg: "invalid log level"},
		{name: "bad log format", args: []string{"roots", "-log-format", "xml"}, errMsg: "invalid log format"},
		{name: "prune without state file", args: []string{"update", "-prune", "http://j"}, errMsg: "requires a state file"},
		{name: "bad plugin version", args: []string{"init", "-workflow-plugin", "x.y", "http://j"}, errMsg: "invalid workflow plugin version"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			require.Error(t, err)

			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.errMsg)
		})
	}
}

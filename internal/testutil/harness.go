// Package testutil holds helpers shared by the end-to-end tests of the
// application.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/jobsync/internal/app"
	"github.com/vk/jobsync/internal/hcl"
	"github.com/vk/jobsync/internal/jenkins/memory"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an application run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// WriteFiles lays the given files out under a fresh temporary directory and
// returns it. Names are slash separated paths relative to that directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// RunApp builds an App from cfg against server and runs it once. When
// cfg.WorkspacePath is empty it points at dir. Startup errors are reported
// in the result like run errors.
func RunApp(t *testing.T, dir string, cfg app.Config, server *memory.Server) *HarnessResult {
	t.Helper()

	if cfg.WorkspacePath == "" {
		cfg.WorkspacePath = dir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	out := &SafeBuffer{}
	logs := &SafeBuffer{}
	defer func() {
		if os.Getenv("JOBSYNC_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	}()

	appConfig, err := app.NewConfig(cfg)
	if err != nil {
		return &HarnessResult{Err: err}
	}

	testApp, err := app.NewApp(out, appConfig, hcl.NewLoader(), app.WithClient(server), app.WithLogOutput(logs))
	if err != nil {
		return &HarnessResult{LogOutput: logs.String(), Err: err}
	}

	runErr := testApp.Run(context.Background())
	return &HarnessResult{
		Output:    out.String(),
		LogOutput: logs.String(),
		Err:       runErr,
		App:       testApp,
	}
}

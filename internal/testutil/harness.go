package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/meshweave/internal/app"
)

// Graph and manifest locations understood by RunApp.
const (
	GraphFile    = "graph.hcl"
	ManifestsDir = "manifests"
)

// WriteFiles creates the given files under a fresh temporary directory and
// returns its path. Names may contain subdirectories.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

// HarnessResult holds the outcome of one RunApp call.
type HarnessResult struct {
	Dir    string
	Stdout string
	Stderr string
	Err    error
	App    *app.App
}

// RunApp writes files to a temporary directory, builds an App pointed at
// GraphFile and, when present, ManifestsDir, and calls action on it.
// A failure to build the App is reported through Err with a nil App.
func RunApp(t *testing.T, files map[string]string, action func(context.Context, *app.App) error, configure ...func(*app.Config)) *HarnessResult {
	t.Helper()
	dir := WriteFiles(t, files)

	cfg := app.DefaultConfig()
	cfg.GraphPath = filepath.Join(dir, GraphFile)
	cfg.LogLevel = "debug"
	if _, err := os.Stat(filepath.Join(dir, ManifestsDir)); err == nil {
		cfg.ManifestsPath = filepath.Join(dir, ManifestsDir)
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	stdout, stderr := &SafeBuffer{}, &SafeBuffer{}
	res := &HarnessResult{Dir: dir}

	ctx := context.Background()
	a, err := app.New(ctx, stdout, stderr, &cfg)
	if err == nil {
		res.App = a
		err = action(ctx, a)
	}

	res.Stdout, res.Stderr, res.Err = stdout.String(), stderr.String(), err
	if os.Getenv("MESHWEAVE_TEST_LOGS") == "true" {
		t.Logf("--- stderr for %s ---\n%s", t.Name(), res.Stderr)
	}
	return res
}

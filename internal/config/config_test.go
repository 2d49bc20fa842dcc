package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcam-lab/internal/algorithms"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	writeFile(t, path, `
[motion]
strategy = "squared_emphasis"
gain = 4.5

[output]
dir = "captures"
snapshot_format = "png"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, algorithms.SquaredEmphasis, cfg.Motion.Strategy)
	assert.Equal(t, 4.5, cfg.Motion.Gain)
	assert.Equal(t, 10.0, cfg.Motion.Floor)
	assert.Equal(t, "captures", cfg.Output.Dir)
	assert.Equal(t, ".png", cfg.Output.SnapshotFormat)
	assert.Equal(t, 640, cfg.Camera.Width)
	assert.Equal(t, 15*time.Millisecond, cfg.Interval())
}

func TestLoad_RejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"syntax":   "[motion\nstrategy=",
		"strategy": "[motion]\nstrategy = \"sobel\"\n",
		"codec":    "[output]\ncodec = \"XV\"\n",
		"mode":     "[camera]\nmode = \"sepia\"\n",
		"range":    "[motion]\nthreshold = 900.0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			writeFile(t, path, body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestValidate_ClampsRepairableValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Camera.Width = 0
	cfg.Camera.IntervalMS = -1
	cfg.Output.FPS = 0
	cfg.Output.Dir = ""
	cfg.Output.Container = "mkv"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 640, cfg.Camera.Width)
	assert.Equal(t, 480, cfg.Camera.Height)
	assert.Equal(t, 15, cfg.Camera.IntervalMS)
	assert.Equal(t, 20.0, cfg.Output.FPS)
	assert.Equal(t, "gallery", cfg.Output.Dir)
	assert.Equal(t, ".mkv", cfg.Output.Container)
}

func TestMotionParams(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, map[string]interface{}{"threshold": 25.0}, cfg.MotionParams())

	cfg.Motion.Strategy = algorithms.SquaredEmphasis
	assert.Equal(t, map[string]interface{}{"floor": 10.0, "gain": 3.0}, cfg.MotionParams())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cfg.toml")
	cfg := DefaultConfig()
	cfg.Output.DualFormat = true
	cfg.Stream.Listen = "127.0.0.1:8089"

	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestNewLogger(t *testing.T) {
	debug := NewLogger("debug", false)
	assert.Equal(t, logrus.DebugLevel, debug.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, debug.Formatter)

	info := NewLogger("info", false)
	assert.Equal(t, logrus.InfoLevel, info.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, info.Formatter)

	bogus := NewLogger("loud", false)
	assert.Equal(t, logrus.InfoLevel, bogus.GetLevel())
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	writeFile(t, path, "[motion]\nthreshold = 25.0\n")

	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []*Config
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, logger, func(c *Config) {
			mu.Lock()
			got = append(got, c)
			mu.Unlock()
		})
	}()

	// Keep rewriting until the watcher has been registered and reports.
	require.Eventually(t, func() bool {
		writeFile(t, path, "[motion]\nthreshold = 40.0\n")
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 5*time.Second, 150*time.Millisecond)

	mu.Lock()
	assert.Equal(t, 40.0, got[len(got)-1].Motion.Threshold)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_SkipsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.toml")
	writeFile(t, path, "")

	logger, hook := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan *Config, 8)
	go func() { _ = Watch(ctx, path, logger, func(c *Config) { calls <- c }) }()

	require.Eventually(t, func() bool {
		writeFile(t, path, "[motion]\nstrategy = \"sobel\"\n")
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.WarnLevel {
				return true
			}
		}
		return false
	}, 5*time.Second, 150*time.Millisecond)
	assert.Empty(t, calls)

	// Unrelated files in the same directory are ignored.
	writeFile(t, filepath.Join(dir, "other.toml"), "[motion]\nthreshold = 30.0\n")
	time.Sleep(3 * reloadDelay)
	assert.Empty(t, calls)
}

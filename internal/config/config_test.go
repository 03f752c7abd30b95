package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default("/data")

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/data/mudra.db", cfg.Store.Path)
	assert.Equal(t, "/data/drivers", cfg.Driver.Dir)
	assert.Equal(t, DriverRobotgo, cfg.Driver.Name)
	assert.Equal(t, DetectorCascade, cfg.Detector.Kind)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.GetIdleTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.Pipeline.GetTrainInterval())
	assert.Equal(t, 2*time.Second, cfg.Driver.GetTimeout())
}

func TestLoad_EmptyPathAndMissingFile(t *testing.T) {
	cfg, err := Load("", "/data")
	require.NoError(t, err)
	assert.Equal(t, Default("/data"), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "absent.json"), "/data")
	require.NoError(t, err)
	assert.Equal(t, Default("/data"), cfg)
}

func TestLoad_Overlay(t *testing.T) {
	path := writeConfig(t, "mudra.json", `{
		"camera": {"source": "clip.mp4"},
		"detector": {"kind": "pigo", "path": "/models/facefinder"},
		"tracker": {"threshold": 0.5, "finger_angle": 0.8},
		"driver": {"name": "xdotool"},
		"server": {"addr": "127.0.0.1:9000"}
	}`)

	cfg, err := Load(path, "/data")
	require.NoError(t, err)

	assert.Equal(t, "clip.mp4", cfg.Camera.Source)
	assert.Equal(t, 640, cfg.Camera.Width, "omitted fields keep defaults")
	assert.Equal(t, DetectorPigo, cfg.Detector.Kind)
	assert.Equal(t, 0.5, cfg.Tracker.Threshold)
	assert.Equal(t, 0.8, cfg.Tracker.FingerAngle)
	assert.Equal(t, 0.25, cfg.Tracker.KHandHeightProp)
	assert.Equal(t, "xdotool", cfg.Driver.Name)
	assert.Equal(t, "/data/drivers", cfg.Driver.Dir)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"wrong extension", "mudra.yaml", `{}`, "extension"},
		{"bad json", "mudra.json", `{"camera":`, "parse"},
		{"bad detector", "mudra.json", `{"detector":{"kind":"dnn"}}`, "detector.kind"},
		{"bad duration", "mudra.json", `{"pipeline":{"idle_timeout":"soon"}}`, "pipeline.idle_timeout"},
		{"bad tracker", "mudra.json", `{"tracker":{"finger_angle":0}}`, "finger_angle"},
		{"bad queue", "mudra.json", `{"pipeline":{"queue_size":0}}`, "queue_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.body), "/data")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseDuration_Fallback(t *testing.T) {
	p := PipelineConfig{IdleTimeout: "bogus", TrainInterval: "250ms"}
	assert.Equal(t, 2*time.Second, p.GetIdleTimeout())
	assert.Equal(t, 250*time.Millisecond, p.GetTrainInterval())
}

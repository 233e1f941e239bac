package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/capsched/core/model"
	"github.com/kilianp07/capsched/core/scoring"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `scheduler:
  schedule_direction: backward
  tasks_per_loop: 2
  requires_preds: true
  max_lateness: 3600
scoring:
  rules:
    - name: earliest-start-time
      weight: 0.7
    - name: resource-rank
      weight: 0.3
logging:
  level: debug
runlog:
  backend: sqlite
  path: runs.db
metrics:
  sinks:
    - type: "nop"
  textfile_path: metrics.prom
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  ack_topic: "plant/+/ack"
  ack_timeout: 3s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"direction", cfg.Scheduler.Direction, model.Backward},
		{"tasks_per_loop", cfg.Scheduler.TasksPerLoop, 2},
		{"top_tasks_default", cfg.Scheduler.TopTasksToSchedule, 5},
		{"requires_preds", cfg.Scheduler.RequiresPreds, true},
		{"max_lateness", cfg.Scheduler.MaxLateness, int64(3600)},
		{"rules", len(cfg.Scoring.Rules), 2},
		{"first_rule", cfg.Scoring.Rules[0].Name, scoring.RuleEarliestStart},
		{"level", cfg.Logging.Level, "debug"},
		{"runlog.backend", cfg.RunLog.Backend, "sqlite"},
		{"runlog.path", cfg.RunLog.Path, "runs.db"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"textfile", cfg.Metrics.TextfilePath, "metrics.prom"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"ack_timeout", cfg.MQTT.AckTimeout, 3 * time.Second},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{"logging": {"console": true}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.Forward, cfg.Scheduler.Direction)
	assert.Equal(t, 1, cfg.Scheduler.TasksPerLoop)
	assert.Equal(t, scoring.DefaultPolicy(), cfg.Scoring)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Console)
	assert.Equal(t, "none", cfg.RunLog.Backend)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", "logging:\n  level: info\n")
	t.Setenv("K_LOGGING__LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]struct {
		name string
		data string
	}{
		"format":    {"config.toml", "x = 1"},
		"direction": {"config.yaml", "scheduler:\n  schedule_direction: sideways\n"},
		"runlog":    {"config.yaml", "runlog:\n  backend: csv\n"},
		"mqtt":      {"config.yaml", "mqtt:\n  enabled: true\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.name, tc.data))
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.Scoring.Rules)
}

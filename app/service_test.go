package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/capsched/config"
	coremqtt "github.com/kilianp07/capsched/core/mqtt"
	"github.com/kilianp07/capsched/core/runlog"
	"github.com/kilianp07/capsched/core/scoring"
	"github.com/kilianp07/capsched/infra/landscapefile"
	"github.com/kilianp07/capsched/infra/mqtt"
)

const fixture = "testdata/line.yaml"

func newService(t *testing.T) (*Service, *mqtt.MockPublisher, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.RunLog.Backend = "jsonl"
	cfg.RunLog.Path = filepath.Join(dir, "runs.jsonl")
	cfg.Metrics.TextfilePath = filepath.Join(dir, "capsched.prom")
	pub := mqtt.NewMockPublisher()
	svc, err := New(cfg, WithPublisher(pub), WithGatherer(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, pub, cfg
}

func taskDoc(t *testing.T, doc *landscapefile.File, key string) landscapefile.Task {
	t.Helper()
	for _, td := range doc.Tasks {
		if td.Key == key {
			return td
		}
	}
	t.Fatalf("task %s not in document", key)
	return landscapefile.Task{}
}

func TestServiceSchedule(t *testing.T) {
	svc, pub, cfg := newService(t)
	ctx := context.Background()

	doc, err := svc.Schedule(ctx, fixture, nil)
	require.NoError(t, err)

	a := taskDoc(t, doc, "a")
	require.NotNil(t, a.Start)
	assert.Equal(t, time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC), a.Start.UTC())
	assert.Equal(t, []string{"m1"}, a.Resources)
	b := taskDoc(t, doc, "b")
	require.NotNil(t, b.Start)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), b.Start.UTC())

	recs, err := svc.History(ctx, runlog.Query{TaskKey: "a"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "schedule", recs[0].Operation)

	_, err = os.Stat(cfg.Metrics.TextfilePath)
	assert.NoError(t, err)

	require.NoError(t, svc.Close())
	sent := pub.Sent()
	require.Len(t, sent, 2)
	for _, o := range sent {
		assert.Equal(t, coremqtt.ActionAssign, o.Action)
		assert.Equal(t, "m1", o.ResourceKey)
	}
}

func TestServiceUnscheduleReleasesTask(t *testing.T) {
	svc, pub, _ := newService(t)
	ctx := context.Background()

	doc, err := svc.Schedule(ctx, fixture, nil)
	require.NoError(t, err)
	scheduled := filepath.Join(t.TempDir(), "scheduled.json")
	require.NoError(t, landscapefile.Save(scheduled, doc))

	doc, err = svc.Unschedule(ctx, scheduled, []string{"a"})
	require.NoError(t, err)
	a := taskDoc(t, doc, "a")
	assert.Nil(t, a.Start)
	assert.Equal(t, "NOT_SCHEDULED", a.State)
	assert.NotNil(t, taskDoc(t, doc, "b").Start)

	require.NoError(t, svc.Close())
	var released []string
	for _, o := range pub.Sent() {
		if o.Action == coremqtt.ActionRelease {
			released = append(released, o.TaskKey)
		}
	}
	assert.Equal(t, []string{"a"}, released)
}

func TestServiceRejectsUnknownTask(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Schedule(context.Background(), fixture, []string{"missing"})
	assert.ErrorContains(t, err, "unknown task missing")
}

func TestRulesListsBuiltins(t *testing.T) {
	assert.Contains(t, Rules(), scoring.RuleEarliestStart)
	assert.Contains(t, Rules(), scoring.RuleWhitespace)
}

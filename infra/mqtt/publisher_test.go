package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/capsched/core/events"
	coremqtt "github.com/kilianp07/capsched/core/mqtt"
	"github.com/kilianp07/capsched/internal/eventbus"
)

func TestWorkOrderPublisherFansOutPerResource(t *testing.T) {
	bus := eventbus.New()
	pub := NewMockPublisher()
	pub.FailIDs["broken"] = true
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := StartWorkOrderPublisher(ctx, bus, pub, time.Millisecond)

	bus.Publish(events.TaskCommitted{RunID: "r1", TaskKey: "t1", Kind: "PRODUCTION", State: "RED", Resources: []string{"m1", "crew", "broken"}, StartW: 10, EndW: 20})
	bus.Publish(events.TaskUnscheduled{RunID: "r2", TaskKey: "t1", Resources: []string{"m1"}})

	require.Eventually(t, func() bool { return len(pub.Sent()) == 3 }, time.Second, 5*time.Millisecond)
	sent := pub.Sent()
	assert.Equal(t, coremqtt.WorkOrder{RunID: "r1", TaskKey: "t1", ResourceKey: "m1", Kind: "PRODUCTION", State: "RED", Action: coremqtt.ActionAssign, StartW: 10, EndW: 20}, sent[0])
	assert.Equal(t, "crew", sent[1].ResourceKey)
	assert.Equal(t, coremqtt.ActionRelease, sent[2].Action)

	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
}

func TestConfigValidate(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.NoError(t, c.Validate())
	assert.Equal(t, "resource", c.TopicPrefix)

	c.Enabled = true
	assert.Error(t, c.Validate())
	c.Broker = "tcp://localhost:1883"
	assert.NoError(t, c.Validate())
	c.AckTimeout = time.Second
	assert.Error(t, c.Validate())
}

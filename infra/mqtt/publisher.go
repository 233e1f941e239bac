package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/capsched/core/events"
	coremqtt "github.com/kilianp07/capsched/core/mqtt"
	"github.com/kilianp07/capsched/infra/logger"
	"github.com/kilianp07/capsched/internal/eventbus"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Orders     []coremqtt.WorkOrder
	FailIDs    map[string]bool
	AckResults map[string]bool
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		FailIDs:    make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// SendWorkOrder records the order or returns an error if configured to fail
// for its resource.
func (m *MockPublisher) SendWorkOrder(o coremqtt.WorkOrder) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[o.ResourceKey] {
		return "", fmt.Errorf("publish failed")
	}
	m.Orders = append(m.Orders, o)
	commandID := fmt.Sprintf("cmd-%s-%s", o.ResourceKey, o.TaskKey)
	m.AckResults[commandID] = true
	return commandID, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockPublisher) WaitForAck(commandID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[commandID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("unknown command")
	}
	return ok, nil
}

// Sent returns a copy of the recorded orders.
func (m *MockPublisher) Sent() []coremqtt.WorkOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.WorkOrder(nil), m.Orders...)
}

// StartWorkOrderPublisher subscribes to the event bus and sends one work
// order per resource of every committed or unscheduled task. With a positive
// ackTimeout each order waits for its acknowledgment. It stops when the
// context is canceled or the bus closes; the returned channel is closed once
// it has stopped.
func StartWorkOrderPublisher(ctx context.Context, bus eventbus.EventBus, cli Client, ackTimeout time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || cli == nil {
		close(done)
		return done
	}
	log := logger.New("workorder_publisher")
	sub := bus.Subscribe()
	send := func(o coremqtt.WorkOrder) {
		id, err := cli.SendWorkOrder(o)
		if err != nil {
			log.Errorf("send work order for %s on %s: %v", o.TaskKey, o.ResourceKey, err)
			return
		}
		if ackTimeout <= 0 {
			return
		}
		if ok, err := cli.WaitForAck(id, ackTimeout); err != nil || !ok {
			log.Warnf("work order %s for %s not acknowledged: %v", id, o.ResourceKey, err)
		}
	}
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.TaskCommitted:
					for _, res := range e.Resources {
						send(coremqtt.WorkOrder{
							RunID:       e.RunID,
							TaskKey:     e.TaskKey,
							ResourceKey: res,
							Kind:        e.Kind,
							State:       e.State,
							Action:      coremqtt.ActionAssign,
							StartW:      e.StartW,
							EndW:        e.EndW,
						})
					}
				case events.TaskUnscheduled:
					for _, res := range e.Resources {
						send(coremqtt.WorkOrder{
							RunID:       e.RunID,
							TaskKey:     e.TaskKey,
							ResourceKey: res,
							Action:      coremqtt.ActionRelease,
						})
					}
				}
			}
		}
	}()
	return done
}

package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"project-management-api/internal/logger"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	msgs [][]byte
	fail bool
}

func (r *recorder) Send(message []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return false
	}
	r.msgs = append(r.msgs, message)
	return true
}

func (r *recorder) Close() {}

func TestHub_PublishDedupesRecipients(t *testing.T) {
	h := NewHub(logger.Discard())
	manager, dev := &recorder{}, &recorder{}
	h.Register(2, manager)
	h.Register(5, dev)

	h.Publish(Event{Type: TaskUpdated, ProjectID: 7, TaskID: 3, ActorID: 5}, 2, 5, 5)

	require.Len(t, manager.msgs, 1)
	require.Len(t, dev.msgs, 1)

	var got Event
	require.NoError(t, json.Unmarshal(dev.msgs[0], &got))
	require.Equal(t, Event{Type: TaskUpdated, ProjectID: 7, TaskID: 3, ActorID: 5, Version: 1}, got)
}

func TestHub_UnregisterAndFailedSend(t *testing.T) {
	h := NewHub(logger.Discard())
	a, b := &recorder{}, &recorder{fail: true}
	h.Register(1, a)
	h.Register(1, b)
	require.Equal(t, 2, h.Connections(1))

	h.Publish(Event{Type: TaskDeleted}, 1)
	require.Len(t, a.msgs, 1)

	h.Unregister(1, a)
	h.Unregister(1, b)
	require.Zero(t, h.Connections(1))

	h.Publish(Event{Type: TaskDeleted}, 1)
	require.Len(t, a.msgs, 1)
}

type stallingClient struct {
	entered chan struct{}
	release chan struct{}
}

func (s *stallingClient) Send(message []byte) bool {
	close(s.entered)
	<-s.release
	return true
}

func (s *stallingClient) Close() {}

func TestHub_PublishDoesNotHoldLockDuringSend(t *testing.T) {
	h := NewHub(logger.Discard())
	slow := &stallingClient{entered: make(chan struct{}), release: make(chan struct{})}
	h.Register(1, slow)

	done := make(chan struct{})
	go func() {
		h.Publish(Event{Type: TaskUpdated}, 1)
		close(done)
	}()
	<-slow.entered

	other := &recorder{}
	h.Register(2, other)
	require.Equal(t, 1, h.Connections(2))
	h.Unregister(1, slow)
	require.Zero(t, h.Connections(1))

	close(slow.release)
	<-done
}

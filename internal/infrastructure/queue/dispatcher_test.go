package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuthEvent
	fail   domain.AuthEventKind
}

func (r *recordingAudit) Record(_ context.Context, event domain.AuthEvent) error {
	if event.Kind == r.fail {
		return errors.New("store down")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAudit) snapshot() []domain.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuthEvent(nil), r.events...)
}

func TestDispatcher_RecordsInOrderPerUser(t *testing.T) {
	audit := &recordingAudit{}
	d := NewDispatcher(3, audit, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	kinds := []domain.AuthEventKind{domain.EventLogin, domain.EventRefresh, domain.EventPasswordChanged, domain.EventLogout}
	for _, k := range kinds {
		d.Enqueue(domain.AuthEvent{Kind: k, UserID: "u1"})
		d.Enqueue(domain.AuthEvent{Kind: k, UserID: "u2"})
	}

	require.Eventually(t, func() bool { return len(audit.snapshot()) == 2*len(kinds) }, time.Second, 5*time.Millisecond)
	cancel()
	d.Wait()

	perUser := map[string][]domain.AuthEventKind{}
	for _, e := range audit.snapshot() {
		perUser[e.UserID] = append(perUser[e.UserID], e.Kind)
	}
	assert.Equal(t, kinds, perUser["u1"])
	assert.Equal(t, kinds, perUser["u2"])
}

func TestDispatcher_FailedRecordDoesNotStopWorker(t *testing.T) {
	audit := &recordingAudit{fail: domain.EventLoginFailed}
	d := NewDispatcher(1, audit, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Enqueue(domain.AuthEvent{Kind: domain.EventLoginFailed, IP: "203.0.113.7"})
	d.Enqueue(domain.AuthEvent{Kind: domain.EventLogin, IP: "203.0.113.7"})

	require.Eventually(t, func() bool { return len(audit.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	d.Wait()
	assert.Equal(t, domain.EventLogin, audit.snapshot()[0].Kind)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	audit := &recordingAudit{}
	d := NewDispatcher(1, audit, zerolog.Nop())

	// Workers are not started, so the buffer fills and further events drop.
	for i := 0; i < channelBuffer+10; i++ {
		d.Enqueue(domain.AuthEvent{Kind: domain.EventLogin, UserID: "u1"})
	}
	assert.Len(t, d.workers[0], channelBuffer)
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(0, &recordingAudit{}, zerolog.Nop())
	require.Len(t, d.workers, defaultWorkers)

	first := d.shardIndex("u1")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, d.shardIndex("u1"))
	}
	assert.Equal(t, d.shardIndex("198.51.100.4"), d.shardIndex(shardKey(domain.AuthEvent{IP: "198.51.100.4"})))
}

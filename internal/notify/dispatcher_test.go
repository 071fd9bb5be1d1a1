package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carwatch/pkg/logger"
)

type recordingNotifier struct {
	name  string
	err   error
	calls int
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(_ context.Context, _ *Summary) error {
	r.calls++
	return r.err
}

type memoryMarkers struct {
	mu       sync.Mutex
	taken    map[string]bool
	released []string
	err      error
}

func newMemoryMarkers() *memoryMarkers {
	return &memoryMarkers{taken: map[string]bool{}}
}

func (m *memoryMarkers) Mark(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.taken[key] {
		return false, nil
	}
	m.taken[key] = true
	return true, nil
}

func (m *memoryMarkers) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.taken, key)
	m.released = append(m.released, key)
	return nil
}

func TestDispatchOncePerDate(t *testing.T) {
	chat := &recordingNotifier{name: "webhook"}
	markers := newMemoryMarkers()
	d := NewDispatcher(markers, logger.NewNop(), chat)

	res, err := d.Dispatch(context.Background(), sampleSummary())
	require.NoError(t, err)
	assert.Equal(t, []string{"webhook"}, res.Sent)
	assert.False(t, res.Skipped)

	res, err = d.Dispatch(context.Background(), sampleSummary())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "already sent", res.Reason)
	assert.Equal(t, 1, chat.calls)
	assert.True(t, markers.taken["notify:20240102"])
}

func TestDispatchSkipsEmptySummary(t *testing.T) {
	chat := &recordingNotifier{name: "webhook"}
	d := NewDispatcher(newMemoryMarkers(), logger.NewNop(), chat)

	res, err := d.Dispatch(context.Background(), Summarize("20240102", nil))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, chat.calls)
}

func TestDispatchJoinsFailures(t *testing.T) {
	chat := &recordingNotifier{name: "webhook", err: errors.New("boom")}
	mail := &recordingNotifier{name: "email"}
	bus := &recordingNotifier{name: "nats", err: errors.New("no responders")}
	d := NewDispatcher(nil, logger.NewNop(), chat, mail, bus)

	res, err := d.Dispatch(context.Background(), sampleSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook: boom")
	assert.Contains(t, err.Error(), "nats: no responders")
	assert.Equal(t, []string{"email"}, res.Sent)
	assert.Equal(t, []string{"webhook", "nats"}, res.Failed)
	assert.Equal(t, 1, mail.calls)
}

func TestDispatchReleasesMarkerWhenAllFail(t *testing.T) {
	chat := &recordingNotifier{name: "webhook", err: errors.New("down")}
	markers := newMemoryMarkers()
	d := NewDispatcher(markers, logger.NewNop(), chat)

	_, err := d.Dispatch(context.Background(), sampleSummary())
	require.Error(t, err)
	assert.Equal(t, []string{"notify:20240102"}, markers.released)

	chat.err = nil
	res, err := d.Dispatch(context.Background(), sampleSummary())
	require.NoError(t, err)
	assert.Equal(t, []string{"webhook"}, res.Sent)
}

func TestDispatchMarkerError(t *testing.T) {
	markers := newMemoryMarkers()
	markers.err = errors.New("redis down")
	d := NewDispatcher(markers, logger.NewNop(), &recordingNotifier{name: "webhook"})

	_, err := d.Dispatch(context.Background(), sampleSummary())
	assert.ErrorContains(t, err, "redis down")
}

func TestDispatchWithoutNotifiers(t *testing.T) {
	d := NewDispatcher(nil, logger.NewNop())
	res, err := d.Dispatch(context.Background(), sampleSummary())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, d.Notifiers())
}

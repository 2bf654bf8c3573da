package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []PushMessage
	err  error
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) Send(_ context.Context, msg PushMessage) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.msgs = append(s.msgs, msg)
	return len(msg.Tokens), nil
}

func (s *recordingSender) sent() []PushMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PushMessage(nil), s.msgs...)
}

func TestDispatcher_DeliversQueuedJobs(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 2, 8)
	d.Start()

	id, err := d.Enqueue(context.Background(), "New post", "Dr. Rao posted", []string{"t1", "t2"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	sent := sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, id, sent[0].ID)
	assert.Equal(t, []string{"t1", "t2"}, sent[0].Tokens)
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, 1, 1)

	_, err := d.Enqueue(context.Background(), "a", "b", []string{"t"})
	require.NoError(t, err)
	_, err = d.Enqueue(context.Background(), "a", "b", []string{"t"})
	assert.ErrorIs(t, err, ErrQueueFull)

	d.Start()
	require.NoError(t, d.Stop(context.Background()))

	_, err = d.Enqueue(context.Background(), "a", "b", []string{"t"})
	assert.ErrorIs(t, err, ErrDispatcherStopped)
}

func TestDispatcher_SenderErrorDoesNotStopWorkers(t *testing.T) {
	sender := &recordingSender{err: errors.New("provider down")}
	d := NewDispatcher(sender, 1, 4)
	d.Start()

	for i := 0; i < 3; i++ {
		_, err := d.Enqueue(context.Background(), "a", "b", []string{"t"})
		require.NoError(t, err)
	}
	require.NoError(t, d.Stop(context.Background()))
	assert.Empty(t, sender.sent())
}

func TestWebhookSender(t *testing.T) {
	var got PushMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accepted":2}`))
	}))
	defer srv.Close()

	s := &WebhookSender{URL: srv.URL}
	accepted, err := s.Send(context.Background(), PushMessage{ID: "p1", Title: "t", Body: "b", Tokens: []string{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, 2, accepted)
	assert.Equal(t, "p1", got.ID)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer failing.Close()

	_, err = (&WebhookSender{URL: failing.URL}).Send(context.Background(), PushMessage{ID: "p2"})
	assert.Error(t, err)
}

package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/store"
)

func TestHub_PublishRoutesByOwner(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	a := hub.Subscribe("alice")
	b := hub.Subscribe("bob")
	defer hub.Unsubscribe(b)

	hub.Publish(domain.Job{ID: "job-1", UserID: "alice"})

	select {
	case got := <-a.Events():
		assert.Equal(t, "job-1", got.ID)
	case <-time.After(time.Second):
		t.Fatal("alice did not get her job")
	}
	select {
	case got := <-b.Events():
		t.Fatalf("bob received %s", got.ID)
	default:
	}

	hub.Unsubscribe(a)
	hub.Unsubscribe(a)
	_, open := <-a.Events()
	assert.False(t, open)
	assert.Zero(t, hub.Subscribers("alice"))
}

func TestHub_PublishDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	s := hub.Subscribe("alice")
	defer hub.Unsubscribe(s)

	for range subscriberBuffer + 5 {
		hub.Publish(domain.Job{ID: "job-1", UserID: "alice"})
	}
	assert.Len(t, s.Events(), subscriberBuffer)
}

func TestListener_Handle(t *testing.T) {
	st := store.NewMemoryStore(zap.NewNop())
	st.PutJob(domain.Job{ID: "job-1", UserID: "alice", Status: domain.JobStatusPending})
	hub := NewHub(zap.NewNop(), nil)
	sub := hub.Subscribe("alice")
	defer hub.Unsubscribe(sub)
	l := NewListener("", st, hub, zap.NewNop())
	ctx := context.Background()

	l.handle(ctx, `{"id":"job-9","user_id":"alice","status":"processing","progress_percent":40}`)
	got := <-sub.Events()
	assert.Equal(t, "job-9", got.ID)
	assert.Equal(t, 40, got.ProgressPercent)

	l.handle(ctx, "job-1")
	got = <-sub.Events()
	assert.Equal(t, domain.JobStatusPending, got.Status)

	l.handle(ctx, `{"id":"job-1"}`)
	got = <-sub.Events()
	assert.Equal(t, "job-1", got.ID)

	l.handle(ctx, "job-missing")
	l.handle(ctx, "{not json")
	l.handle(ctx, "  ")
	assert.Empty(t, sub.Events())
}

func TestStreamHandler(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	h := NewStreamHandler(hub, zap.NewNop(), []string{"https://app.example.com"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.URL.Query().Get("user"); id != "" {
			r = r.WithContext(auth.WithUser(r.Context(), auth.User{ID: id}))
		}
		h.ServeHTTP(w, r)
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?user=alice", http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?user=alice", http.Header{"Origin": {"https://app.example.com"}})
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers("alice") == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish(domain.Job{ID: "job-1", UserID: "alice", Status: domain.JobStatusCompleted})

	var got domain.Job
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "job-1", got.ID)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers("alice") == 0 }, 2*time.Second, 5*time.Millisecond)
}

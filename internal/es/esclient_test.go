package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCluster struct {
	mu       sync.Mutex
	indexed  []map[string]any
	paths    []string
	failNext bool
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodGet && r.URL.Path == "/" {
		_, _ = io.WriteString(w, `{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	if f.failNext {
		f.failNext = false
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"mapper_parsing_exception"}`)
		return
	}

	var doc map[string]any
	_ = json.NewDecoder(r.Body).Decode(&doc)
	f.indexed = append(f.indexed, doc)
	w.WriteHeader(http.StatusCreated)
	_, _ = io.WriteString(w, `{"result":"created"}`)
}

func TestAuditIndexer_PublishEvent(t *testing.T) {
	cluster := &fakeCluster{}
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), Config{URL: srv.URL})
	require.NoError(t, err)

	idx := &AuditIndexer{Client: client, Index: "auth_events"}
	err = idx.PublishEvent(context.Background(), "user_events", "user-1", map[string]string{"type": "user_logged_in"})
	require.NoError(t, err)

	cluster.mu.Lock()
	defer cluster.mu.Unlock()
	require.Len(t, cluster.indexed, 1)
	assert.Equal(t, "POST /auth_events/_doc", cluster.paths[0])
	assert.Equal(t, "user-1", cluster.indexed[0]["key"])
	assert.Equal(t, "user_events", cluster.indexed[0]["topic"])
}

func TestAuditIndexer_ErrorResponse(t *testing.T) {
	cluster := &fakeCluster{failNext: true}
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), Config{URL: srv.URL})
	require.NoError(t, err)

	idx := &AuditIndexer{Client: client, Index: "auth_events"}
	err = idx.PublishEvent(context.Background(), "user_events", "user-1", struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestNewClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(context.Background(), Config{URL: srv.URL, Username: "u", Password: "p"})
	require.Error(t, err)
}

func TestAuditIndexer_StuckClusterTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if r.Method == http.MethodGet && r.URL.Path == "/" {
			_, _ = io.WriteString(w, `{"version":{"number":"9.0.0"}}`)
			return
		}
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client, err := NewClient(context.Background(), Config{URL: srv.URL})
	require.NoError(t, err)

	idx := &AuditIndexer{Client: client, Index: "auth_events", Timeout: 50 * time.Millisecond}
	start := time.Now()
	err = idx.PublishEvent(context.Background(), "user_events", "user-1", struct{}{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

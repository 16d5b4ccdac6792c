package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/explorebd/explorebd-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCluster struct {
	mu       sync.Mutex
	hasIndex bool
	docs     map[string][]byte
	requests []string
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	switch {
	case r.URL.Path == "/":
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/tours" && r.Method == http.MethodHead:
		if !f.hasIndex {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.URL.Path == "/tours" && r.Method == http.MethodPut:
		f.hasIndex = true
		w.Write([]byte(`{"acknowledged":true}`))
	case r.URL.Path == "/tours/_search":
		hits := []map[string]json.RawMessage{}
		for _, d := range f.docs {
			hits = append(hits, map[string]json.RawMessage{"_source": d})
		}
		json.NewEncoder(w).Encode(map[string]any{"hits": map[string]any{"hits": hits}})
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.docs[r.URL.Path] = body
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodDelete:
		if _, ok := f.docs[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.docs, r.URL.Path)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeCluster) {
	t.Helper()
	cluster := &fakeCluster{docs: map[string][]byte{}}
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), &config.Config{ElasticsearchURL: srv.URL + "/"})
	require.NoError(t, err)
	return c, cluster
}

func TestNewClientCreatesIndexOnce(t *testing.T) {
	_, cluster := newTestClient(t)
	assert.Equal(t, []string{"GET /", "HEAD /tours", "PUT /tours"}, cluster.requests)
	assert.True(t, cluster.hasIndex)
}

func TestIndexSearchDelete(t *testing.T) {
	c, cluster := newTestClient(t)
	ctx := context.Background()

	tour := &models.Tour{ID: 3, Name: "Sundarbans Mangrove", Destination: "Khulna", Status: models.TourActive, Highlights: []string{"Tigers"}}
	require.NoError(t, c.IndexTour(ctx, models.NewTourDocument(tour)))
	assert.Contains(t, cluster.docs, "/tours/_doc/3")

	found, err := c.Search(ctx, "mangrove", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Sundarbans Mangrove", found[0].Name)
	assert.Equal(t, []string{"Tigers"}, found[0].Highlights)

	require.NoError(t, c.DeleteTour(ctx, 3))
	require.NoError(t, c.DeleteTour(ctx, 3))
	assert.Empty(t, cluster.docs)
}

func TestNewClientFailsWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(context.Background(), &config.Config{ElasticsearchURL: srv.URL})
	assert.Error(t, err)
}

func TestBuildSearchQuery(t *testing.T) {
	q := BuildSearchQuery(" tea ", "Sylhet")
	b := q["query"].(map[string]any)["bool"].(map[string]any)

	must := b["must"].([]map[string]any)
	require.Len(t, must, 2)
	assert.Equal(t, "tea", must[0]["multi_match"].(map[string]any)["query"])
	assert.Equal(t, "Sylhet", must[1]["multi_match"].(map[string]any)["query"])

	filter := b["filter"].([]map[string]any)
	assert.Equal(t, "active", filter[0]["term"].(map[string]any)["status"])

	empty := BuildSearchQuery("", "")
	assert.Empty(t, empty["query"].(map[string]any)["bool"].(map[string]any)["must"])
}

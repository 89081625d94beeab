package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestObserveServiceCall(t *testing.T) {
	m := New()

	m.ObserveServiceCall("embeddings", 10*time.Millisecond, nil)
	m.ObserveServiceCall("embeddings", 20*time.Millisecond, errors.New("boom"))
	m.ObserveServiceCall("embeddings", 5*time.Millisecond, nil)

	body := scrape(t, m)
	assert.Contains(t, body, `edubot_service_calls_total{service="embeddings",status="success"} 2`)
	assert.Contains(t, body, `edubot_service_calls_total{service="embeddings",status="error"} 1`)
	assert.Contains(t, body, `edubot_service_call_duration_seconds_count{service="embeddings"} 3`)
}

func TestIndexGaugesAndCacheCounters(t *testing.T) {
	m := New()

	m.SetIndexedDocuments(12)
	m.AddCacheLookups(10, 2)
	m.AddCacheLookups(12, 0)

	body := scrape(t, m)
	assert.Contains(t, body, "edubot_retrieval_indexed_documents 12")
	assert.Contains(t, body, `edubot_retrieval_embedding_cache_lookups_total{result="hit"} 22`)
	assert.Contains(t, body, `edubot_retrieval_embedding_cache_lookups_total{result="miss"} 2`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveServiceCall("chat", time.Second, nil)
		m.ObserveRetrieval(time.Millisecond)
		m.SetIndexedDocuments(3)
		m.AddCacheLookups(1, 1)
	})
}

func TestHandlerServesRetrievalHistogram(t *testing.T) {
	m := New()
	m.ObserveRetrieval(3 * time.Millisecond)

	assert.Contains(t, scrape(t, m), "edubot_retrieval_query_duration_seconds_count 1")
}

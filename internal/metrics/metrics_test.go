package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/quantmind-br/whyml-go/internal/cache"
	"github.com/quantmind-br/whyml-go/internal/fetcher"
	"github.com/quantmind-br/whyml-go/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ cache.Observer        = (*Metrics)(nil)
	_ manifest.LoadObserver = (*Metrics)(nil)
	_ fetcher.FetchObserver = (*Metrics)(nil)
)

func TestMetrics_CacheEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OnHit()
	m.OnHit()
	m.OnMiss()
	m.OnEvict(cache.EvictCapacity)
	m.OnEvict(cache.EvictExpired)
	m.OnEvict(cache.EvictExpired)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.cacheEvents.WithLabelValues("hit")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.cacheEvents.WithLabelValues("miss")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.cacheEvictions.WithLabelValues("capacity")))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.cacheEvictions.WithLabelValues("expired")))
}

func TestMetrics_Loads(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLoad(manifest.OutcomeFetched, 20*time.Millisecond)
	m.ObserveLoad(manifest.OutcomeHit, time.Microsecond)
	m.ObserveLoad(manifest.OutcomeHit, time.Microsecond)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.loads.WithLabelValues("hit")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.loads.WithLabelValues("fetched")))
	assert.Equal(t, 2, promtest.CollectAndCount(m.loadDuration))
}

func TestMetrics_Fetches(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveFetch(200, time.Millisecond)
	m.ObserveFetch(503, time.Millisecond)
	m.ObserveFetch(0, time.Millisecond)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.fetches.WithLabelValues("200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.fetches.WithLabelValues("503")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.fetches.WithLabelValues("error")))
}

func TestMetrics_Resolves(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveResolve("", 3, time.Millisecond)
	m.ObserveResolve("cyclic_dependency", 0, time.Millisecond)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.resolves.WithLabelValues("success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.resolves.WithLabelValues("cyclic_dependency")))
}

func TestMetrics_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.OnMiss()

	expected := `
# HELP whyml_cache_requests_total Document cache lookups by result
# TYPE whyml_cache_requests_total counter
whyml_cache_requests_total{result="miss"} 1
`
	require.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(expected), "whyml_cache_requests_total"))
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}

func TestMetrics_NilRegisterer(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil).OnHit()
		New(nil).OnHit()
	})
}

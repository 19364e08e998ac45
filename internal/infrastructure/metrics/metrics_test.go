package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveChange_CuentaPorResultado(t *testing.T) {
	m := New()
	m.ObserveChange(ledger.ResultChanged, 3*time.Millisecond)
	m.ObserveChange(ledger.ResultChanged, 2*time.Millisecond)
	m.ObserveChange(ledger.ResultConflict, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.changes.WithLabelValues(ledger.ResultChanged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.changes.WithLabelValues(ledger.ResultConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts))
}

func TestCacheResult(t *testing.T) {
	m := New()
	m.CacheResult("hit")
	m.CacheResult("miss")
	m.CacheResult("hit")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues("miss")))
}

func TestHandler_ExponeMetricasDelLedger(t *testing.T) {
	m := New()
	m.ObserveChange(ledger.ResultNoop, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `barledger_ledger_changes_total{result="noop"} 1`))
	assert.Contains(t, body, "barledger_ledger_apply_duration_seconds")
}

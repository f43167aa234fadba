package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intent-swap/pkg/types"
)

func TestTransitionsAndPolls(t *testing.T) {
	m := New()

	m.Transition(types.StatusGating)
	m.Transition(types.StatusGating)
	m.Transition(types.StatusFailed)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("gating")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("failed")))

	m.Poll("price", nil)
	m.Poll("price", errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("price", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("price", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stale.WithLabelValues("price")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transition(types.StatusSubmitted)
		m.Poll("gas", nil)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.Transition(types.StatusSubmitted)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `intent_swap_execution_transitions_total{status="submitted"} 1`)
}

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnregisteredMetrics_Independent(t *testing.T) {
	a := NewUnregisteredMetrics()
	b := NewUnregisteredMetrics()

	a.Assessments.WithLabelValues("manual", "low").Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(a.Assessments.WithLabelValues("manual", "low")), 1e-9)
	assert.InDelta(t, 0, testutil.ToFloat64(b.Assessments.WithLabelValues("manual", "low")), 1e-9)
}

func TestNewUnregisteredMetrics_Registerable(t *testing.T) {
	m := NewUnregisteredMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.Assessments))
	require.NoError(t, reg.Register(m.IRI))
}

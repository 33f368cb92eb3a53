package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CountsByOutcome(t *testing.T) {
	c, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	c.ObserveOperation("approve", "ok", time.Millisecond)
	c.ObserveOperation("approve", "ok", time.Millisecond)
	c.ObserveOperation("approve", "rejected", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("approve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("approve", "rejected")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestCollector_WriteText(t *testing.T) {
	c, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	c.ObserveOperation("create", "ok", 2*time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, `storypage_operations_total{op="create",outcome="ok"} 1`)
	assert.Contains(t, out, "# TYPE storypage_operation_duration_seconds histogram")
}

func TestNew_RejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

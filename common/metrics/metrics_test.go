package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHost(t *testing.T) {
	h := Host()
	assert.NotEmpty(t, h.Hostname)
	assert.Positive(t, h.CPULogical)
	assert.Same(t, h, Host())

	assert.Equal(t, float64(1), testutil.ToFloat64(hostInfo.WithLabelValues(h.Hostname, h.GoVersion, h.ContainerRuntime)))
}

func TestSequenceTasksOutcomeLabels(t *testing.T) {
	before := testutil.ToFloat64(SequenceTasks.WithLabelValues(OutcomeMissing))
	SequenceTasks.WithLabelValues(OutcomeMissing).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SequenceTasks.WithLabelValues(OutcomeMissing)))
}

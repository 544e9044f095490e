package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(GenerationRequests.WithLabelValues("mock", "ok"))
	GenerationRequests.WithLabelValues("mock", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(GenerationRequests.WithLabelValues("mock", "ok")))

	runs := testutil.ToFloat64(ScoringRuns)
	ScoringRuns.Inc()
	assert.Equal(t, runs+1, testutil.ToFloat64(ScoringRuns))
}

func TestCollectorsLint(t *testing.T) {
	problems, err := testutil.CollectAndLint(AnalysisFallbacks)
	assert.NoError(t, err)
	assert.Empty(t, problems)
}

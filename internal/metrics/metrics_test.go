package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAreRegistered(t *testing.T) {
	before := testutil.ToFloat64(FieldsCreated.WithLabelValues("text"))
	FieldsCreated.WithLabelValues("text").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(FieldsCreated.WithLabelValues("text")))

	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "fieldbase_fields_created_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestObserveSince(t *testing.T) {
	ObserveSince("get_page", time.Now().Add(-10*time.Millisecond))
	assert.Equal(t, 1, testutil.CollectAndCount(ProjectionLatency, "fieldbase_projection_seconds"))
}

package prom

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_CountsPerPeer(t *testing.T) {
	r := NewRecorder()

	r.IncChunks("10.0.0.1:5000")
	r.IncChunks("10.0.0.1:5000")
	r.IncChunks("10.0.0.2:6000")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.MessageCount.WithLabelValues("10.0.0.1:5000")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.MessageCount.WithLabelValues("10.0.0.2:6000")))
}

func TestRecorder_ObservesSizes(t *testing.T) {
	r := NewRecorder()

	r.ObserveSize("peer", 5)
	r.ObserveSize("peer", 16384)

	expected := `
# HELP size_data_bytes Data sent
# TYPE size_data_bytes histogram
size_data_bytes_bucket{server="peer",le="64"} 1
size_data_bytes_bucket{server="peer",le="256"} 1
size_data_bytes_bucket{server="peer",le="1024"} 1
size_data_bytes_bucket{server="peer",le="4096"} 1
size_data_bytes_bucket{server="peer",le="8192"} 1
size_data_bytes_bucket{server="peer",le="16384"} 2
size_data_bytes_bucket{server="peer",le="+Inf"} 2
size_data_bytes_sum{server="peer"} 16389
size_data_bytes_count{server="peer"} 2
`
	require.NoError(t, testutil.CollectAndCompare(r.SizeData, strings.NewReader(expected)))
}

func TestRecorder_IsolatedRegistries(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()

	a.IncChunks("peer")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.MessageCount.WithLabelValues("peer")))
	assert.Equal(t, 0, testutil.CollectAndCount(b.MessageCount))

	n, err := testutil.GatherAndCount(a.Registry(), "message_count")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

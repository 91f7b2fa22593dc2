package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.documents.WithLabelValues("namespaced").Inc()
	m.documents.WithLabelValues("namespaced").Inc()
	m.fileActions.WithLabelValues("skip").Inc()

	path := filepath.Join(t.TempDir(), "gitops.prom")
	require.NoError(t, m.WriteTextfile(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(got), `gitops_manifests_classified_total{scope="namespaced"} 2`)
	assert.Contains(t, string(got), `gitops_files_total{action="skip"} 1`)
}

func TestMetricsWriteTextfile_NoPath(t *testing.T) {
	m := NewMetrics()

	assert.NoError(t, m.WriteTextfile(""))
}

func TestMetricsCountersStartAtZero(t *testing.T) {
	m := NewMetrics()

	assert.Equal(t, float64(0), testutil.ToFloat64(m.documents.WithLabelValues("cluster")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.matches.WithLabelValues("added")))
}

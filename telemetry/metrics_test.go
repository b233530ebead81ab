package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersEveryCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.FacesConnected.Set(3)
	m.DeclaresTotal.WithLabelValues("subscriber").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["fabric_faces_connected"])
	assert.True(t, names["fabric_declare_total"])

	var gotGauge *dto.Metric
	for _, f := range families {
		if f.GetName() == "fabric_faces_connected" {
			gotGauge = f.Metric[0]
		}
	}
	require.NotNil(t, gotGauge)
	assert.Equal(t, float64(3), gotGauge.GetGauge().GetValue())
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNewRegistryRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg, "shellsync")

	r.ConnectedMachines.Set(3)
	require.Equal(t, float64(3), gaugeValue(t, r.ConnectedMachines))

	r.HistoryPushed.Add(5)
	require.Equal(t, float64(5), counterValue(t, r.HistoryPushed))

	r.EventsSent.WithLabelValues("alias_added").Inc()
	metricFamilies, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, metricFamilies)
}

func TestNewRegistryPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRegistry(reg, "shellsync")
	require.Panics(t, func() { NewRegistry(reg, "shellsync") })
}

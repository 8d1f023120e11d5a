package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemSampler periodically refreshes a small set of host resource
// gauges, grounded on the teacher's SystemMetricsTracker (same gopsutil
// calls, trimmed to what a sync service actually wants to expose: this
// process doesn't move enough data for disk or network throughput to be
// interesting).
type SystemSampler struct {
	cpuUsage prometheus.Gauge
	memUsed  prometheus.Gauge
}

// NewSystemSampler builds and registers the sampler's gauges against reg.
func NewSystemSampler(reg prometheus.Registerer, namespace string) *SystemSampler {
	s := &SystemSampler{
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "host_cpu_usage_percent",
			Help:      "Total host CPU usage percent, sampled on an interval.",
		}),
		memUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "host_memory_used_percent",
			Help:      "Host memory used percent, sampled on an interval.",
		}),
	}
	reg.MustRegister(s.cpuUsage, s.memUsed)
	return s
}

// Sample takes one reading and updates the gauges. CPU sampling blocks
// for a short interval (gopsutil measures usage over a window), so this
// should be called from a background ticker, never from a request path.
func (s *SystemSampler) Sample(window time.Duration) error {
	percentages, err := cpu.Percent(window, false)
	if err == nil && len(percentages) > 0 {
		s.cpuUsage.Set(percentages[0])
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return err
	}
	s.memUsed.Set(memInfo.UsedPercent)
	return nil
}

// Run samples on interval until ctx-like stop channel is closed.
func (s *SystemSampler) Run(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = s.Sample(time.Second)
		}
	}
}

package risk

import "testing"

func TestMetricsRegistration(t *testing.T) {
	t.Parallel()

	if ChecksTotal == nil {
		t.Error("ChecksTotal counter is nil")
	}
	if DenialsTotal == nil {
		t.Error("DenialsTotal counter is nil")
	}
	if ExposureUtilization == nil {
		t.Error("ExposureUtilization gauge is nil")
	}
}

func TestMetricsUpdates(t *testing.T) {
	t.Parallel()

	ChecksTotal.WithLabelValues("allowed").Inc()
	ChecksTotal.WithLabelValues("denied").Inc()
	DenialsTotal.WithLabelValues("total_exposure").Inc()
	DenialsTotal.WithLabelValues("position_limit").Inc()
	DenialsTotal.WithLabelValues("market_exposure").Inc()
	ExposureUtilization.Set(1.45)
}

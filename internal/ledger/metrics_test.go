package ledger

import "testing"

func TestMetricsRegistration(t *testing.T) {
	t.Parallel()

	if AccountBalance == nil {
		t.Error("AccountBalance gauge is nil")
	}
	if TotalExposure == nil {
		t.Error("TotalExposure gauge is nil")
	}
	if OpenPositions == nil {
		t.Error("OpenPositions gauge is nil")
	}
	if FillsCached == nil {
		t.Error("FillsCached gauge is nil")
	}
	if RealizedPnL == nil {
		t.Error("RealizedPnL gauge is nil")
	}
	if FeesPaid == nil {
		t.Error("FeesPaid gauge is nil")
	}
	if SyncErrorsTotal == nil {
		t.Error("SyncErrorsTotal counter is nil")
	}
	if SyncDuration == nil {
		t.Error("SyncDuration histogram is nil")
	}
	if LastSyncTimestamp == nil {
		t.Error("LastSyncTimestamp gauge is nil")
	}
}

func TestMetricsUpdates(t *testing.T) {
	t.Parallel()

	AccountBalance.Set(123456)
	TotalExposure.Set(725)
	OpenPositions.Set(2)
	SyncErrorsTotal.WithLabelValues("balance").Inc()
	SyncErrorsTotal.WithLabelValues("positions").Inc()
	SyncDuration.Observe(0.05)
}

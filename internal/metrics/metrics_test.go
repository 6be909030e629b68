package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestCrowdfundMetrics_Counters(t *testing.T) {
	m := newCrowdfundMetrics()

	m.ObserveOperation("pledge", ResultOK, "")
	m.ObserveOperation("pledge", ResultOK, "")
	m.ObserveOperation("pledge", ResultRejected, "CampaignHasFinished")
	m.AddPledged(600)
	m.AddPledged(500)
	m.AddPledged(-1)
	m.ObserveCampaignEnded(true)

	if got := counterValue(t, m.operations.WithLabelValues("pledge", ResultOK, "")); got != 2 {
		t.Errorf("ok pledges = %v, want 2", got)
	}
	if got := counterValue(t, m.operations.WithLabelValues("pledge", ResultRejected, "CampaignHasFinished")); got != 1 {
		t.Errorf("rejected pledges = %v, want 1", got)
	}
	if got := counterValue(t, m.pledgedNano); got != 1100 {
		t.Errorf("pledged = %v, want 1100", got)
	}
	if got := counterValue(t, m.campaignsEnded.WithLabelValues("true")); got != 1 {
		t.Errorf("ended = %v, want 1", got)
	}
}

func TestCrowdfundMetrics_NilSafe(t *testing.T) {
	var m *CrowdfundMetrics
	m.ObserveOperation("create", ResultOK, "")
	m.AddWithdrawn(10)
	m.ObservePageFetch("ok")
	m.ObserveWebhookFailure()
}

func TestCrowdfund_RegistersOnce(t *testing.T) {
	if Crowdfund() != Crowdfund() {
		t.Fatal("Crowdfund must return the same collectors")
	}
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation results
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

type CrowdfundMetrics struct {
	operations      *prometheus.CounterVec
	pledgedNano     prometheus.Counter
	withdrawnNano   prometheus.Counter
	depositedNano   prometheus.Counter
	campaignsEnded  *prometheus.CounterVec
	pageFetches     *prometheus.CounterVec
	webhookFailures prometheus.Counter
}

var (
	crowdfundOnce     sync.Once
	crowdfundRegistry *CrowdfundMetrics
)

// Crowdfund returns the process-wide collectors, registering them with the
// default registry on first use.
func Crowdfund() *CrowdfundMetrics {
	crowdfundOnce.Do(func() {
		crowdfundRegistry = newCrowdfundMetrics()
		prometheus.MustRegister(crowdfundRegistry.collectors()...)
	})
	return crowdfundRegistry
}

func newCrowdfundMetrics() *CrowdfundMetrics {
	return &CrowdfundMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crowdfund_operations_total",
			Help: "Campaign operations by kind and result code.",
		}, []string{"op", "result", "code"}),
		pledgedNano: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crowdfund_pledged_nanoton_total",
			Help: "Sum of accepted pledges in nanoTON.",
		}),
		withdrawnNano: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crowdfund_withdrawn_nanoton_total",
			Help: "Sum of escrow releases to creators in nanoTON.",
		}),
		depositedNano: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crowdfund_deposited_nanoton_total",
			Help: "Sum of credited on-chain deposits in nanoTON.",
		}),
		campaignsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crowdfund_campaigns_ended_total",
			Help: "Campaigns announced as ended by goal outcome.",
		}, []string{"goal_reached"}),
		pageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crowdfund_page_fetches_total",
			Help: "Landing page metadata fetches by result.",
		}, []string{"result"}),
		webhookFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crowdfund_webhook_failures_total",
			Help: "Failed notify webhook deliveries.",
		}),
	}
}

func (m *CrowdfundMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.operations,
		m.pledgedNano,
		m.withdrawnNano,
		m.depositedNano,
		m.campaignsEnded,
		m.pageFetches,
		m.webhookFailures,
	}
}

// ObserveOperation counts one engine call. code is the error kind for
// rejected calls and empty otherwise.
func (m *CrowdfundMetrics) ObserveOperation(op, result, code string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result, code).Inc()
}

func (m *CrowdfundMetrics) AddPledged(nano int64) {
	if m == nil || nano <= 0 {
		return
	}
	m.pledgedNano.Add(float64(nano))
}

func (m *CrowdfundMetrics) AddWithdrawn(nano int64) {
	if m == nil || nano <= 0 {
		return
	}
	m.withdrawnNano.Add(float64(nano))
}

func (m *CrowdfundMetrics) AddDeposited(nano int64) {
	if m == nil || nano <= 0 {
		return
	}
	m.depositedNano.Add(float64(nano))
}

func (m *CrowdfundMetrics) ObserveCampaignEnded(goalReached bool) {
	if m == nil {
		return
	}
	label := "false"
	if goalReached {
		label = "true"
	}
	m.campaignsEnded.WithLabelValues(label).Inc()
}

func (m *CrowdfundMetrics) ObservePageFetch(result string) {
	if m == nil {
		return
	}
	m.pageFetches.WithLabelValues(result).Inc()
}

func (m *CrowdfundMetrics) ObserveWebhookFailure() {
	if m == nil {
		return
	}
	m.webhookFailures.Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edvin/fleetctl/internal/model"
)

// AccessMetrics counts access rule lifecycle events.
type AccessMetrics struct {
	applied  *prometheus.CounterVec
	failures *prometheus.CounterVec
	revoked  prometheus.Counter
}

// NewAccessMetrics registers the access counters with reg.
func NewAccessMetrics(reg prometheus.Registerer) *AccessMetrics {
	f := promauto.With(reg)
	return &AccessMetrics{
		applied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetctl_access_rules_applied_total",
			Help: "Inbound rules authorized on fleets, by purpose and outcome",
		}, []string{"purpose", "status"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetctl_access_rule_failures_total",
			Help: "Failed calls made while opening or closing access",
		}, []string{"op"}),
		revoked: f.NewCounter(prometheus.CounterOpts{
			Name: "fleetctl_access_rules_revoked_total",
			Help: "Inbound rules revoked from fleets",
		}),
	}
}

func (m *AccessMetrics) RuleAuthorized(purpose model.Purpose, status model.AuthorizeStatus) {
	m.applied.WithLabelValues(string(purpose), status.String()).Inc()
}

func (m *AccessMetrics) CallFailed(op string) {
	m.failures.WithLabelValues(op).Inc()
}

func (m *AccessMetrics) GrantRevoked(rules int) {
	m.revoked.Add(float64(rules))
}

// RegisterLedgerGauge exposes the number of open grants as a gauge.
func RegisterLedgerGauge(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fleetctl_ledger_grants",
		Help: "Grants currently recorded as open by this process",
	}, func() float64 {
		return float64(count())
	}))
}

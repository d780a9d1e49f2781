package adminauth

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the engine's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	credentialChecks    *prometheus.CounterVec
	tokensIssued        *prometheus.CounterVec
	tokenVerifications  *prometheus.CounterVec
	guardRejections     *prometheus.CounterVec
	bookkeepingFailures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		credentialChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminauth_credential_checks_total",
			Help: "Credential validations by result and credential source.",
		}, []string{"result", "source"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminauth_tokens_issued_total",
			Help: "Signed tokens by kind.",
		}, []string{"kind"}),
		tokenVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminauth_token_verifications_total",
			Help: "Token verifications by result.",
		}, []string{"result"}),
		guardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminauth_guard_rejections_total",
			Help: "Requests rejected by the HTTP guard by reason.",
		}, []string{"reason"}),
		bookkeepingFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminauth_bookkeeping_failures_total",
			Help: "Swallowed identity store and session write failures by operation.",
		}, []string{"op"}),
	}

	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.credentialChecks,
		m.tokensIssued,
		m.tokenVerifications,
		m.guardRejections,
		m.bookkeepingFailures,
	}
}

func (m *Metrics) credentialCheck(result, source string) {
	if m == nil {
		return
	}
	if source == "" {
		source = "none"
	}
	m.credentialChecks.WithLabelValues(result, source).Inc()
}

func (m *Metrics) tokenIssued(kind TokenKind) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) tokenVerified(result string) {
	if m == nil {
		return
	}
	m.tokenVerifications.WithLabelValues(result).Inc()
}

// GuardRejected counts an HTTP guard rejection. It is exported for the
// middleware package.
func (m *Metrics) GuardRejected(reason string) {
	if m == nil {
		return
	}
	m.guardRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) bookkeepingFailed(op string) {
	if m == nil {
		return
	}
	m.bookkeepingFailures.WithLabelValues(op).Inc()
}

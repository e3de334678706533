package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — счётчики ядра. Все методы безопасны при nil-получателе,
// чтобы в тестах сервисы можно было собирать без реестра.
type Metrics struct {
	tokensIssued      prometheus.Counter
	tokensRedeemed    prometheus.Counter
	redemptionsFailed *prometheus.CounterVec
	sweepsTotal       prometheus.Counter
	vipExpired        prometheus.Counter
	busDeliveries     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		tokensIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "subpass_tokens_issued_total",
			Help: "Issued subscription tokens.",
		}),
		tokensRedeemed: f.NewCounter(prometheus.CounterOpts{
			Name: "subpass_tokens_redeemed_total",
			Help: "Successfully redeemed tokens.",
		}),
		redemptionsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subpass_redemptions_failed_total",
			Help: "Failed redemption attempts by reason.",
		}, []string{"reason"}),
		sweepsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "subpass_sweeps_total",
			Help: "Completed expiration sweeps.",
		}),
		vipExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "subpass_vip_expired_total",
			Help: "VIP statuses cleared by the sweeper.",
		}),
		busDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subpass_bus_deliveries_total",
			Help: "Event bus handler invocations by subscriber and outcome.",
		}, []string{"subscriber", "outcome"}),
	}
}

func (m *Metrics) IssuedInc() {
	if m != nil {
		m.tokensIssued.Inc()
	}
}

func (m *Metrics) RedeemedInc() {
	if m != nil {
		m.tokensRedeemed.Inc()
	}
}

func (m *Metrics) RedeemFailedInc(reason string) {
	if m != nil {
		m.redemptionsFailed.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) SweepInc() {
	if m != nil {
		m.sweepsTotal.Inc()
	}
}

func (m *Metrics) VIPExpiredInc() {
	if m != nil {
		m.vipExpired.Inc()
	}
}

func (m *Metrics) BusDeliveryInc(subscriber, outcome string) {
	if m != nil {
		m.busDeliveries.WithLabelValues(subscriber, outcome).Inc()
	}
}

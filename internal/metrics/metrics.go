package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "autoinvoice"

var (
	// rateLimitExceeded counts HTTP 429 events from the rate limit middleware.
	// Labels:
	// - endpoint: short name like "mailer:token", "mailer:send"
	// - source:   "user" or "ip"
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limit_exceeded_total",
			Help:      "Number of requests rejected due to rate limiting (HTTP 429)",
		},
		[]string{"endpoint", "source"},
	)

	mailerSignatureFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mailer",
			Name:      "signature_failures_total",
			Help:      "Mailer API requests rejected for a missing or wrong X-Signature.",
		},
		[]string{"route"},
	)

	// invoiceTransitions counts lifecycle actions.
	// Labels:
	// - transition: send | mark_paid | cancel
	// - result: success | rejected | failed
	invoiceTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invoice",
			Name:      "transitions_total",
			Help:      "Invoice lifecycle actions by transition and result.",
		},
		[]string{"transition", "result"},
	)

	webhookDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "dispatches_total",
			Help:      "Outbound workflow webhook deliveries by result.",
		},
		[]string{"result"},
	)

	webhookDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "dispatch_seconds",
		Help:      "Outbound workflow webhook latency in seconds.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
	})

	tokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "token_refreshes_total",
			Help:      "OAuth access token refreshes by provider and result.",
		},
		[]string{"provider", "result"},
	)

	mailRelays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mailer",
			Name:      "relays_total",
			Help:      "Relayed mail sends by provider and result.",
		},
		[]string{"provider", "result"},
	)
)

func label(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// IncRateLimitExceeded increments the 429 counter for the given endpoint and source.
func IncRateLimitExceeded(endpoint, source string) {
	rateLimitExceeded.WithLabelValues(label(endpoint, "unknown"), label(source, "unknown")).Inc()
}

// IncMailerSignatureFailure counts a rejected mailer API request.
func IncMailerSignatureFailure(route string) {
	mailerSignatureFailures.WithLabelValues(label(route, "unknown")).Inc()
}

// IncInvoiceTransition counts a lifecycle action outcome.
func IncInvoiceTransition(transition, result string) {
	invoiceTransitions.WithLabelValues(label(transition, "unknown"), label(result, "unknown")).Inc()
}

// ObserveWebhookDispatch records one webhook delivery.
func ObserveWebhookDispatch(ok bool, seconds float64) {
	result := "failure"
	if ok {
		result = "success"
	}
	webhookDispatches.WithLabelValues(result).Inc()
	webhookDuration.Observe(seconds)
}

// IncTokenRefresh counts a token refresh attempt.
func IncTokenRefresh(provider, result string) {
	tokenRefreshes.WithLabelValues(label(provider, "unknown"), label(result, "unknown")).Inc()
}

// IncMailRelay counts a relayed send.
func IncMailRelay(provider, result string) {
	mailRelays.WithLabelValues(label(provider, "unknown"), label(result, "unknown")).Inc()
}

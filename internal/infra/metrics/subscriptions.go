package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsActivatedTotal,
		subscriptionsCancelledTotal,
	)
}

var (
	subscriptionsActivatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_activated_total",
			Help: "Total number of subscription activations, renewals included.",
		},
	)

	subscriptionsCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_cancelled_total",
			Help: "Total number of subscriptions cancelled by user or admin.",
		},
	)
)

func IncSubscriptionActivated() { subscriptionsActivatedTotal.Inc() }
func IncSubscriptionCancelled() { subscriptionsCancelledTotal.Inc() }

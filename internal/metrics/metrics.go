package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_webhook_events_total",
		Help: "Inbound webhook events by kind.",
	}, []string{"kind"})

	TriggersClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automation_triggers_claimed_total",
		Help: "Pending triggers successfully claimed for processing.",
	})

	RepliesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automation_replies_generated_total",
		Help: "Automated replies generated and delivered.",
	})

	Handoffs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automation_handoffs_total",
		Help: "Sessions handed off to a human.",
	})

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automation_bookings_created_total",
		Help: "Appointments created through the automation.",
	})

	BookingsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automation_bookings_rejected_total",
		Help: "Booking attempts rejected for lack of capacity.",
	})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automation_reminders_sent_total",
		Help: "Appointment reminders delivered.",
	})

	CompletionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "automation_completion_latency_seconds",
		Help:    "Latency of completion service calls.",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler serves the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

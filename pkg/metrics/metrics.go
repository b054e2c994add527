package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OTPChannelAttempts counts OTP delivery attempts per channel and outcome (success|failure).
	OTPChannelAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattrewards_otp_channel_attempts_total",
			Help: "Total number of OTP delivery attempts per channel",
		},
		[]string{"channel", "result"},
	)

	// OTPVerifications counts verification outcomes (verified|invalid|expired|not_found).
	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattrewards_otp_verifications_total",
			Help: "Total number of OTP verification attempts by outcome",
		},
		[]string{"result"},
	)

	// PushDeliveries counts push deliveries per device token by outcome (delivered|failed).
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattrewards_push_deliveries_total",
			Help: "Total number of push delivery attempts",
		},
		[]string{"result"},
	)

	// PrunedDeviceTokens counts device tokens removed after the provider reported them invalid.
	PrunedDeviceTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wattrewards_pruned_device_tokens_total",
			Help: "Device tokens pruned after unregistered/invalid responses",
		},
	)

	// ExpiredRecordsSwept counts rows removed by maintenance sweeps per table.
	ExpiredRecordsSwept = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattrewards_expired_records_swept_total",
			Help: "Rows removed by scheduled expiry sweeps",
		},
		[]string{"table"},
	)

	// RateLimitRejections counts requests rejected by a limiter, labelled by scope (http|otp).
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattrewards_rate_limit_rejections_total",
			Help: "Requests rejected because a rate limit was exceeded",
		},
		[]string{"scope"},
	)

	// EventsConsumed counts broker messages handled by the event consumer (processed|rejected|retried|requeued|exhausted).
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattrewards_events_consumed_total",
			Help: "Notification events consumed from the message broker",
		},
		[]string{"result"},
	)

	// HTTPInFlight tracks requests currently being served.
	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wattrewards_http_in_flight_requests",
			Help: "HTTP requests currently being served",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wattrewards_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total emails sent",
		},
		[]string{"campaign"},
	)

	EmailFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_failures_total",
			Help: "Total failed emails",
		},
		[]string{"campaign"},
	)

	EmailsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_skipped_total",
			Help: "Total email jobs cancelled or skipped without sending",
		},
		[]string{"campaign", "reason"},
	)

	JobsScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_jobs_scheduled_total",
			Help: "Total email jobs created by the campaign schedulers",
		},
		[]string{"campaign"},
	)

	JobsRecycled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "email_jobs_recycled_total",
			Help: "Total stale PROCESSING jobs returned to PENDING",
		},
	)

	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "email_batch_duration_seconds",
			Help:    "Duration of one email batch run",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func Init() {
	prometheus.MustRegister(EmailsSent)
	prometheus.MustRegister(EmailFailures)
	prometheus.MustRegister(EmailsSkipped)
	prometheus.MustRegister(JobsScheduled)
	prometheus.MustRegister(JobsRecycled)
	prometheus.MustRegister(BatchDuration)
}

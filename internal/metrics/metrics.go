package metrics

import (
	"net/http"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/jobs-aggregator/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	ScrapedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregator_postings_scraped_total",
			Help: "Total number of postings scraped from all sources.",
		},
	)
	FilteredOutCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregator_postings_filtered_out_total",
			Help: "Total number of postings rejected by the topical filter.",
		},
	)
	DuplicatesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregator_postings_duplicate_total",
			Help: "Total number of postings already present in the store.",
		},
	)
	DeliveredCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregator_postings_delivered_total",
			Help: "Total number of postings delivered to the channel.",
		},
	)
	FailedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregator_postings_failed_total",
			Help: "Total number of postings that failed delivery.",
		},
	)
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregator_run_duration_seconds",
			Help:    "Duration of each pipeline run in seconds.",
			Buckets: []float64{10, 60, 300, 900, 1800},
		},
	)
)

// SubscribeToRuns wires the run-completed event onto the counters, keeping
// the pipeline free of a metrics dependency.
func SubscribeToRuns(bus EventBus.Bus) error {
	return bus.Subscribe(events.RunCompletedTopic, func(event events.RunCompleted) {
		ScrapedCounter.Add(float64(event.Scraped))
		FilteredOutCounter.Add(float64(event.FilteredOut))
		DuplicatesCounter.Add(float64(event.Duplicates))
		DeliveredCounter.Add(float64(event.Delivered))
		FailedCounter.Add(float64(event.Failed))
		RunDuration.Observe(event.Duration)
	})
}

func StartMetricsServer() {

	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(ScrapedCounter)
	prometheus.MustRegister(FilteredOutCounter)
	prometheus.MustRegister(DuplicatesCounter)
	prometheus.MustRegister(DeliveredCounter)
	prometheus.MustRegister(FailedCounter)
	prometheus.MustRegister(RunDuration)

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(":8080", nil))
	}()
}

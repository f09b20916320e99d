package train

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// trainLoss tracks the mean training loss of the last epoch.
	trainLoss = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reaxnet_train_loss",
		Help: "Mean training loss of the last completed epoch",
	})

	// validationMAE tracks the validation metric of the last epoch.
	validationMAE = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reaxnet_validation_mae",
		Help: "Validation mean absolute error of the last completed epoch",
	})

	// learningRate tracks the optimizer's current learning rate.
	learningRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reaxnet_learning_rate",
		Help: "Current optimizer learning rate",
	})

	// epochsTotal counts completed training epochs.
	epochsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reaxnet_epochs_total",
		Help: "Total number of completed training epochs",
	})

	// epochDuration observes wall-clock time per epoch.
	epochDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reaxnet_epoch_duration_seconds",
		Help:    "Wall-clock duration of training epochs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(trainLoss)
	prometheus.MustRegister(validationMAE)
	prometheus.MustRegister(learningRate)
	prometheus.MustRegister(epochsTotal)
	prometheus.MustRegister(epochDuration)
}

// ServeMetrics exposes the prometheus metrics endpoint on addr. It blocks,
// so callers run it in a goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Generation outcomes by error code; "ok" for success.
	GenerationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imagegen",
		Name:      "generations_total",
		Help:      "Generation requests by outcome code.",
	}, []string{"code"})

	GenerationDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "imagegen",
		Name:      "generation_duration_seconds",
		Help:      "End-to-end duration of successful generations.",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 240, 480},
	})

	ImagesGeneratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "imagegen",
		Name:      "images_generated_total",
		Help:      "Images returned to callers.",
	})

	InferencePollsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "imagegen",
		Name:      "inference_polls_total",
		Help:      "Status polls issued to the inference provider.",
	})

	GenerationsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "imagegen",
		Name:      "generations_in_flight",
		Help:      "Generations currently running.",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imagegen",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status.",
	}, []string{"route", "status"})
)

func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		GenerationsTotal,
		GenerationDurationSeconds,
		ImagesGeneratedTotal,
		InferencePollsTotal,
		GenerationsInFlight,
		HTTPRequestsTotal,
	)
}

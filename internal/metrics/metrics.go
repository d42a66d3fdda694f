package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder counts auth operations by outcome. A nil Recorder records nothing.
type Recorder struct {
	ops *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	return &Recorder{
		ops: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Auth operations by operation and result.",
		}, []string{"operation", "result"}),
	}
}

func (r *Recorder) Observe(operation string, err error) {
	if r == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.ops.WithLabelValues(operation, result).Inc()
}

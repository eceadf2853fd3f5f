package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	// buildInfo is a constant 1 labelled with version, commit and environment.
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "formgate_build_info",
			Help: "Formgate API build information.",
		},
		[]string{"version", "commit", "env"},
	)
)

// InitBuildInfo registers build_info once and sets it for this process.
func InitBuildInfo(version, commit, env string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, commit, env).Set(1)
}

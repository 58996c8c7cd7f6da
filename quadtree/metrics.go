package quadtree

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	changeLabel = "change"
	pathLabel   = "path"

	changeSplit    = "split"
	changeMerge    = "merge"
	changeGrowth   = "growth"
	changeEviction = "eviction"

	pathFast = "fast"
	pathSlow = "slow"
)

var (
	quadtreeStructuralChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_structural_changes",
		Help: "The number of splits, merges, growths and evictions performed by quadtrees.",
	}, []string{
		changeLabel,
	})

	quadtreeRemovals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_removals",
		Help: "The number of successful removals by lookup path.",
	}, []string{
		pathLabel,
	})

	quadtreeUpdateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "quadtree_update_latency",
		Help: "The time to run one quadtree update pass.",
	})
)

func instrumentStructuralChange(change string) {
	quadtreeStructuralChanges.
		With(prometheus.Labels{changeLabel: change}).
		Inc()
}

func instrumentRemoval(path string) {
	quadtreeRemovals.
		With(prometheus.Labels{pathLabel: path}).
		Inc()
}

func instrumentUpdateLatency(start time.Time) {
	quadtreeUpdateLatency.Observe(time.Since(start).Seconds())
}

package metrics

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

type TimeMeasure struct {
	clock clock.Clock
	now   time.Time
}

func TimeMeasureNow(clk clock.Clock) TimeMeasure {
	return TimeMeasure{clock: clk, now: clk.Now()}
}

// MeasureTime observes the seconds elapsed since the measure started.
func (t TimeMeasure) MeasureTime(metric prometheus.Observer) {
	metric.Observe(t.clock.Since(t.now).Seconds())
}

package metrics

import (
	"context"
	"time"
)

// TimedPoll wraps poll so that every run is observed in poller_duration_seconds
// and a successful run refreshes poller_last_success_timestamp_seconds.
func TimedPoll(name string, poll func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		start := time.Now()
		err := poll(ctx)
		pollerDurationHistogram.
			WithLabelValues(name, outcome(err != nil).String()).
			Observe(time.Since(start).Seconds())
		if err == nil {
			pollerLastSuccessGauge.WithLabelValues(name).SetToCurrentTime()
		}
		return err
	}
}

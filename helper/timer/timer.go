package timer

import (
	"context"
	"math/rand"
	"time"

	"github.com/lthibault/jitterbug"

	log "github.com/sirupsen/logrus"
)

type Interval struct {
	Duration time.Duration
	Jitter   time.Duration
}

type tickerJitter struct {
	MaxJitter time.Duration
}

func (j tickerJitter) Jitter(d time.Duration) time.Duration {
	if j.MaxJitter == 0 {
		return d
	}

	// Jitter must stay below the base interval.
	max := j.MaxJitter
	if max >= d {
		max = d / 2
	}

	return d + (time.Duration(rand.Int63n(int64(2*max))) - max)
}

// RunWithTicker runs f periodically with the given interval. Exits when the
// context is cancelled or when f returns an error.
func RunWithTicker(ctx context.Context, name string, interval *Interval, f func(ctx context.Context) error) error {
	j := jitterbug.New(interval.Duration, &tickerJitter{MaxJitter: interval.Jitter})
	defer j.Stop()

	log.Debugf("RunWithTicker: running %s with interval %v (jitter %v)", name, interval.Duration, interval.Jitter)

	for {
		select {
		case <-ctx.Done():
			log.Debugf("RunWithTicker: context cancelled for %s", name)
			return ctx.Err()
		case <-j.C:
			if err := f(ctx); err != nil {
				log.Errorf("RunWithTicker: %s returned error: %v", name, err)
				return err
			}
		}
	}
}

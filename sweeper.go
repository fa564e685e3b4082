package entrycache

import "time"

// sweepTarget is what the janitor drives; satisfied by every Cache
// instantiation.
type sweepTarget interface {
	sweep()
}

// janitor periodically sweeps expired entries until stopped. Expired events
// therefore arrive asynchronously relative to the operation that armed the
// deadline.
type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

func newJanitor(interval time.Duration) *janitor {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &janitor{
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (j *janitor) run(target sweepTarget) {
	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				target.sweep()
			case <-j.stop:
				return
			}
		}
	}()
}

func (j *janitor) stopJanitor() {
	select {
	case <-j.stop:
	default:
		close(j.stop)
	}
}

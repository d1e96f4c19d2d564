package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/nexochat/pkg/constant"
)

// KeySetter is implemented by pager.Pager
type KeySetter interface {
	SetKey(ctx context.Context, key string) error
}

// QueryDebouncer forwards the last search query typed within the delay to
// a pager, trimmed
type QueryDebouncer struct {
	target KeySetter
	delay  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	waiting bool
	gen     uint64
	stopped bool
}

// NewQueryDebouncer creates a debouncer; a zero delay uses the default
func NewQueryDebouncer(target KeySetter, delay time.Duration) *QueryDebouncer {
	if delay <= 0 {
		delay = constant.DefaultSearchDebounce
	}
	return &QueryDebouncer{target: target, delay: delay}
}

// Update restarts the delay with query
func (d *QueryDebouncer) Update(query string) {
	query = strings.TrimSpace(query)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = query
	d.waiting = true
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.gen != gen || !d.waiting {
			d.mu.Unlock()
			return
		}
		d.waiting = false
		d.mu.Unlock()

		d.apply(context.Background(), query)
	})
}

// Flush applies a pending query now instead of waiting for the delay
func (d *QueryDebouncer) Flush(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped || !d.waiting {
		d.mu.Unlock()
		return nil
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.waiting = false
	query := d.pending
	d.mu.Unlock()

	return d.target.SetKey(ctx, query)
}

func (d *QueryDebouncer) apply(ctx context.Context, query string) {
	if err := d.target.SetKey(ctx, query); err != nil {
		log.CtxWarn(ctx, "search query failed: query=%q, error=%v", query, err)
	}
}

// Stop drops a pending query
func (d *QueryDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.waiting = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

package pager

import (
	"context"
	"sync"

	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/nexochat/internal/entity"
	"github.com/mbeoliero/nexochat/pkg/metrics"
)

// FetchFunc loads one page for a dependency key (search query, conversation id...)
type FetchFunc[T any] func(ctx context.Context, key string, page int) (*entity.Page[T], error)

// PageHook observes a page once it has passed the staleness check.
// replaced is true for first-page loads.
type PageHook[T any] func(key string, page *entity.Page[T], replaced bool)

// RequestToken identifies one issued fetch
type RequestToken struct {
	seq uint64
}

// Snapshot is a copy of the pager state
type Snapshot[T any] struct {
	Key         string
	Items       []T
	Page        int
	Loading     bool
	LoadingMore bool
	ReachedEnd  bool
}

// Pager drives one paged, searchable list. Responses that are no longer
// current when they resolve are dropped, so a slow reply for an old key
// never overwrites the state built for a newer one.
type Pager[T any] struct {
	mu    sync.Mutex
	fetch FetchFunc[T]

	name         string
	autoFill     bool
	mergeReplace func(incoming []T) []T
	mergeAppend  func(prev, incoming []T) []T
	onPage       PageHook[T]

	key         string
	hasKey      bool
	items       []T
	page        int
	last        bool
	loading     bool
	loadingMore bool
	seq         uint64

	viewportHeight float64
	contentHeight  float64
}

// Option configures a Pager
type Option[T any] func(*Pager[T])

// WithName labels the pager in logs and metrics
func WithName[T any](name string) Option[T] {
	return func(p *Pager[T]) {
		p.name = name
	}
}

// WithAutoFill toggles loading more when the content does not fill the viewport
func WithAutoFill[T any](enabled bool) Option[T] {
	return func(p *Pager[T]) {
		p.autoFill = enabled
	}
}

// WithMergeReplace customises how a first page becomes the item list
func WithMergeReplace[T any](fn func(incoming []T) []T) Option[T] {
	return func(p *Pager[T]) {
		p.mergeReplace = fn
	}
}

// WithMergeAppend customises how a further page is appended
func WithMergeAppend[T any](fn func(prev, incoming []T) []T) Option[T] {
	return func(p *Pager[T]) {
		p.mergeAppend = fn
	}
}

// WithOnPage registers a hook for applied pages
func WithOnPage[T any](fn PageHook[T]) Option[T] {
	return func(p *Pager[T]) {
		p.onPage = fn
	}
}

// New creates a pager over fetch
func New[T any](fetch FetchFunc[T], opts ...Option[T]) *Pager[T] {
	p := &Pager[T]{
		fetch:    fetch,
		name:     "list",
		autoFill: true,
		mergeReplace: func(incoming []T) []T {
			return append([]T(nil), incoming...)
		},
		mergeAppend: func(prev, incoming []T) []T {
			out := make([]T, 0, len(prev)+len(incoming))
			out = append(out, prev...)
			return append(out, incoming...)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// issue hands out the next request token; caller holds mu
func (p *Pager[T]) issue() RequestToken {
	p.seq++
	return RequestToken{seq: p.seq}
}

// IsCurrent reports whether tok is the most recently issued token
func (p *Pager[T]) IsCurrent(tok RequestToken) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isCurrent(tok)
}

func (p *Pager[T]) isCurrent(tok RequestToken) bool {
	return tok.seq == p.seq
}

// SetKey changes the dependency key. A new key resets the list and loads page 0;
// setting the current key again is a no-op.
func (p *Pager[T]) SetKey(ctx context.Context, key string) error {
	p.mu.Lock()
	if p.hasKey && p.key == key {
		p.mu.Unlock()
		return nil
	}
	p.key = key
	p.hasKey = true
	p.mu.Unlock()

	return p.ResetAndLoadFirst(ctx)
}

// ResetAndLoadFirst clears the list and loads page 0. Any fetch still in
// flight becomes stale.
func (p *Pager[T]) ResetAndLoadFirst(ctx context.Context) error {
	p.mu.Lock()
	p.items = nil
	p.page = 0
	p.last = false
	p.loading = true
	p.loadingMore = false
	tok := p.issue()
	key := p.key
	p.mu.Unlock()

	return p.run(ctx, tok, key, 0, true)
}

// Reload fetches page 0 again and replaces the list on success, keeping the
// current items while the request is in flight or if it fails.
func (p *Pager[T]) Reload(ctx context.Context) error {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return nil
	}
	p.loading = true
	p.loadingMore = false
	tok := p.issue()
	key := p.key
	p.mu.Unlock()

	return p.run(ctx, tok, key, 0, true)
}

// LoadNext appends the next page. It does nothing while a load is in flight
// or once the last page has been seen.
func (p *Pager[T]) LoadNext(ctx context.Context) error {
	p.mu.Lock()
	if p.loading || p.loadingMore || p.last {
		p.mu.Unlock()
		return nil
	}
	p.loadingMore = true
	tok := p.issue()
	key := p.key
	next := p.page + 1
	p.mu.Unlock()

	return p.run(ctx, tok, key, next, false)
}

func (p *Pager[T]) run(ctx context.Context, tok RequestToken, key string, pageNum int, replace bool) error {
	res, err := p.fetch(ctx, key, pageNum)

	p.mu.Lock()
	if !p.isCurrent(tok) {
		p.mu.Unlock()
		metrics.PageFetches.WithLabelValues(p.name, "stale").Inc()
		log.CtxDebug(ctx, "stale page dropped: pager=%s, key=%q, page=%d", p.name, key, pageNum)
		return nil
	}

	if replace {
		p.loading = false
	} else {
		p.loadingMore = false
	}

	if err != nil {
		p.mu.Unlock()
		metrics.PageFetches.WithLabelValues(p.name, "failed").Inc()
		log.CtxWarn(ctx, "page fetch failed: pager=%s, key=%q, page=%d, error=%v", p.name, key, pageNum, err)
		return err
	}
	if res == nil {
		res = &entity.Page[T]{Number: pageNum, Last: true}
	}

	p.page = res.Number
	p.last = res.Last
	if replace {
		p.items = p.mergeReplace(res.Content)
	} else {
		p.items = p.mergeAppend(p.items, res.Content)
	}
	onPage := p.onPage
	p.mu.Unlock()

	metrics.PageFetches.WithLabelValues(p.name, "applied").Inc()

	if onPage != nil {
		onPage(key, res, replace)
	}
	return nil
}

// OnEndReached requests the next page when the list was scrolled to its end
func (p *Pager[T]) OnEndReached(ctx context.Context) error {
	return p.LoadNext(ctx)
}

// OnLayout records the viewport height and fills the viewport if needed
func (p *Pager[T]) OnLayout(ctx context.Context, height float64) error {
	p.mu.Lock()
	p.viewportHeight = height
	p.mu.Unlock()
	return p.maybeLoadMore(ctx)
}

// OnContentSizeChange records the content height and fills the viewport if needed
func (p *Pager[T]) OnContentSizeChange(ctx context.Context, height float64) error {
	p.mu.Lock()
	p.contentHeight = height
	p.mu.Unlock()
	return p.maybeLoadMore(ctx)
}

// maybeLoadMore requests the next page when the content is shorter than the
// viewport, since such a list can never be scrolled to its end
func (p *Pager[T]) maybeLoadMore(ctx context.Context) error {
	p.mu.Lock()
	notScrollable := p.contentHeight > 0 && p.contentHeight <= p.viewportHeight
	should := p.autoFill && notScrollable && !p.loading && !p.loadingMore && !p.last
	p.mu.Unlock()

	if !should {
		return nil
	}
	return p.LoadNext(ctx)
}

// Items returns a copy of the accumulated items
func (p *Pager[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]T(nil), p.items...)
}

// Snapshot returns a copy of the whole state
func (p *Pager[T]) Snapshot() Snapshot[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot[T]{
		Key:         p.key,
		Items:       append([]T(nil), p.items...),
		Page:        p.page,
		Loading:     p.loading,
		LoadingMore: p.loadingMore,
		ReachedEnd:  p.last,
	}
}

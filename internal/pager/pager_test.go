package pager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeoliero/nexochat/internal/entity"
)

type reply struct {
	page *entity.Page[string]
	err  error
}

type pendingCall struct {
	key   string
	page  int
	reply chan reply
}

// gatedFetcher parks every fetch until the test answers it
type gatedFetcher struct {
	calls chan *pendingCall
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{calls: make(chan *pendingCall, 16)}
}

func (f *gatedFetcher) fetch(ctx context.Context, key string, page int) (*entity.Page[string], error) {
	c := &pendingCall{key: key, page: page, reply: make(chan reply, 1)}
	f.calls <- c
	r := <-c.reply
	return r.page, r.err
}

func (f *gatedFetcher) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no fetch issued")
		return nil
	}
}

func async(fn func() error) <-chan error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("load did not return")
		return nil
	}
}

func staticPages(pages map[int]*entity.Page[string]) func(context.Context, string, int) (*entity.Page[string], error) {
	return func(ctx context.Context, key string, page int) (*entity.Page[string], error) {
		p, ok := pages[page]
		if !ok {
			return nil, errors.New("no such page")
		}
		return p, nil
	}
}

func TestPager_LoadFirstThenNext(t *testing.T) {
	ctx := context.Background()
	p := New(staticPages(map[int]*entity.Page[string]{
		0: {Content: []string{"a", "b"}, Number: 0, Last: false},
		1: {Content: []string{"c"}, Number: 1, Last: true},
	}))

	require.NoError(t, p.ResetAndLoadFirst(ctx))
	require.NoError(t, p.LoadNext(ctx))

	s := p.Snapshot()
	assert.Equal(t, []string{"a", "b", "c"}, s.Items)
	assert.True(t, s.ReachedEnd)
	assert.Equal(t, 1, s.Page)
	assert.False(t, s.Loading)
	assert.False(t, s.LoadingMore)

	// reached end: nothing else is requested
	require.NoError(t, p.LoadNext(ctx))
	assert.Equal(t, []string{"a", "b", "c"}, p.Items())
}

func TestPager_LateFirstResponseIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newGatedFetcher()
	p := New(f.fetch)

	first := async(func() error { return p.ResetAndLoadFirst(ctx) })
	callA := f.next(t)

	second := async(func() error { return p.ResetAndLoadFirst(ctx) })
	callB := f.next(t)

	callB.reply <- reply{page: &entity.Page[string]{Content: []string{"new"}, Number: 0, Last: true}}
	require.NoError(t, wait(t, second))

	callA.reply <- reply{page: &entity.Page[string]{Content: []string{"old"}, Number: 0, Last: false}}
	require.NoError(t, wait(t, first))

	s := p.Snapshot()
	assert.Equal(t, []string{"new"}, s.Items)
	assert.True(t, s.ReachedEnd)
	assert.False(t, s.Loading)
}

func TestPager_QueryChangeWhileFirstPagePending(t *testing.T) {
	ctx := context.Background()
	f := newGatedFetcher()

	var applied []string
	p := New(f.fetch, WithOnPage(func(key string, page *entity.Page[string], replaced bool) {
		applied = append(applied, key)
	}))

	forA := async(func() error { return p.SetKey(ctx, "a") })
	callA := f.next(t)
	assert.Equal(t, "a", callA.key)

	forAB := async(func() error { return p.SetKey(ctx, "ab") })
	callAB := f.next(t)
	assert.Equal(t, "ab", callAB.key)
	assert.Equal(t, 0, callAB.page)

	callA.reply <- reply{page: &entity.Page[string]{Content: []string{"anna", "abel"}, Number: 0}}
	require.NoError(t, wait(t, forA))
	assert.Empty(t, p.Items(), "result for the old query must not be applied")
	assert.True(t, p.Snapshot().Loading)

	callAB.reply <- reply{page: &entity.Page[string]{Content: []string{"abel"}, Number: 0, Last: true}}
	require.NoError(t, wait(t, forAB))

	s := p.Snapshot()
	assert.Equal(t, "ab", s.Key)
	assert.Equal(t, []string{"abel"}, s.Items)
	assert.Equal(t, []string{"ab"}, applied)
}

func TestPager_SameKeyIsNoop(t *testing.T) {
	ctx := context.Background()
	calls := 0
	p := New(func(ctx context.Context, key string, page int) (*entity.Page[string], error) {
		calls++
		return &entity.Page[string]{Content: []string{key}, Last: true}, nil
	})

	require.NoError(t, p.SetKey(ctx, ""))
	require.NoError(t, p.SetKey(ctx, ""))
	assert.Equal(t, 1, calls)

	require.NoError(t, p.SetKey(ctx, "x"))
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"x"}, p.Items())
}

func TestPager_LoadNextWhileInFlightIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newGatedFetcher()
	p := New(f.fetch)

	first := async(func() error { return p.ResetAndLoadFirst(ctx) })
	c := f.next(t)

	require.NoError(t, p.LoadNext(ctx))
	select {
	case extra := <-f.calls:
		t.Fatalf("unexpected fetch for page %d", extra.page)
	default:
	}

	c.reply <- reply{page: &entity.Page[string]{Content: []string{"a"}, Number: 0}}
	require.NoError(t, wait(t, first))

	more := async(func() error { return p.LoadNext(ctx) })
	c = f.next(t)
	assert.Equal(t, 1, c.page)
	assert.True(t, p.Snapshot().LoadingMore)

	require.NoError(t, p.LoadNext(ctx))
	c.reply <- reply{page: &entity.Page[string]{Content: []string{"b"}, Number: 1, Last: true}}
	require.NoError(t, wait(t, more))
	assert.Equal(t, []string{"a", "b"}, p.Items())
}

func TestPager_FailureKeepsState(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	fail := false
	p := New(func(ctx context.Context, key string, page int) (*entity.Page[string], error) {
		if fail {
			return nil, boom
		}
		return &entity.Page[string]{Content: []string{"a"}, Number: page}, nil
	})

	require.NoError(t, p.ResetAndLoadFirst(ctx))

	fail = true
	err := p.LoadNext(ctx)
	assert.ErrorIs(t, err, boom)

	s := p.Snapshot()
	assert.Equal(t, []string{"a"}, s.Items)
	assert.Equal(t, 0, s.Page)
	assert.False(t, s.LoadingMore)
	assert.False(t, s.ReachedEnd)

	assert.ErrorIs(t, p.Reload(ctx), boom)
	assert.Equal(t, []string{"a"}, p.Items())
	assert.False(t, p.Snapshot().Loading)

	fail = false
	require.NoError(t, p.LoadNext(ctx))
	assert.Equal(t, []string{"a", "a"}, p.Items())
}

func TestPager_AutoFillWhenNotScrollable(t *testing.T) {
	ctx := context.Background()
	p := New(staticPages(map[int]*entity.Page[string]{
		0: {Content: []string{"a"}, Number: 0},
		1: {Content: []string{"b"}, Number: 1, Last: true},
	}))
	require.NoError(t, p.ResetAndLoadFirst(ctx))

	require.NoError(t, p.OnLayout(ctx, 600))
	assert.Equal(t, []string{"a"}, p.Items(), "no content size reported yet")

	require.NoError(t, p.OnContentSizeChange(ctx, 80))
	assert.Equal(t, []string{"a", "b"}, p.Items())
	assert.True(t, p.Snapshot().ReachedEnd)
}

func TestPager_AutoFillDisabled(t *testing.T) {
	ctx := context.Background()
	p := New(staticPages(map[int]*entity.Page[string]{
		0: {Content: []string{"a"}, Number: 0},
		1: {Content: []string{"b"}, Number: 1, Last: true},
	}), WithAutoFill[string](false))
	require.NoError(t, p.ResetAndLoadFirst(ctx))

	require.NoError(t, p.OnLayout(ctx, 600))
	require.NoError(t, p.OnContentSizeChange(ctx, 80))
	assert.Equal(t, []string{"a"}, p.Items())

	require.NoError(t, p.OnEndReached(ctx))
	assert.Equal(t, []string{"a", "b"}, p.Items())
}

func TestPager_IsCurrent(t *testing.T) {
	p := New(staticPages(nil))
	p.mu.Lock()
	first := p.issue()
	second := p.issue()
	p.mu.Unlock()

	assert.False(t, p.IsCurrent(first))
	assert.True(t, p.IsCurrent(second))
}

func TestPager_CustomMerge(t *testing.T) {
	ctx := context.Background()
	dedup := func(prev, incoming []string) []string {
		seen := map[string]bool{}
		var out []string
		for _, s := range append(append([]string(nil), prev...), incoming...) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
		return out
	}
	p := New(staticPages(map[int]*entity.Page[string]{
		0: {Content: []string{"a", "b"}, Number: 0},
		1: {Content: []string{"b", "c"}, Number: 1, Last: true},
	}), WithMergeAppend(dedup), WithName[string]("people"))

	require.NoError(t, p.ResetAndLoadFirst(ctx))
	require.NoError(t, p.LoadNext(ctx))
	assert.Equal(t, []string{"a", "b", "c"}, p.Items())
}

package app

import (
	"context"
	"sync"
)

// windowFullscreen drives fullscreen through the host window. It is used when
// mpv renders into the ebiten window and cannot change its own fullscreen
// state. Requests are queued and applied by sync on the game loop.
type windowFullscreen struct {
	mu      sync.Mutex
	want    bool
	pending bool
	active  bool
	subs    map[int]func(bool)
	next    int
}

func newWindowFullscreen(active bool) *windowFullscreen {
	return &windowFullscreen{active: active, subs: make(map[int]func(bool))}
}

func (f *windowFullscreen) Enabled() bool { return true }

func (f *windowFullscreen) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *windowFullscreen) request(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.want = v
	f.pending = true
}

func (f *windowFullscreen) Request(ctx context.Context) error {
	f.request(true)
	return ctx.Err()
}

func (f *windowFullscreen) Exit(ctx context.Context) error {
	f.request(false)
	return ctx.Err()
}

func (f *windowFullscreen) OnChange(fn func(active bool)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// sync applies a queued request with set and reports a window state change,
// whoever caused it, to the listeners.
func (f *windowFullscreen) sync(set func(bool), get func() bool) {
	f.mu.Lock()
	if f.pending {
		f.pending = false
		set(f.want)
	}
	active := get()
	if active == f.active {
		f.mu.Unlock()
		return
	}
	f.active = active
	subs := make([]func(bool), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(active)
	}
}

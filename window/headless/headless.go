// Package headless is an in-memory window backend. It has no display; it
// records what was asked of it and replays injected events, which makes
// the window thread fully deterministic.
package headless

import (
	"context"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/wippyai/wasm-stage/errors"
	"github.com/wippyai/wasm-stage/gfx"
	"github.com/wippyai/wasm-stage/window"
)

// Backend implements window.Backend without a display.
type Backend struct {
	mu        sync.Mutex
	wake      chan struct{}
	gctx      *gfx.MemoryContext
	icon      image.Image
	recreate  error
	pending   []window.Event
	calls     []string
	title     string
	clipboard string
	mode      window.Mode
	display   image.Point
	pos       image.Point
	budget    uint64
	recreated int
	open      bool
	closed    bool
	noEcho    bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithDisplay sets the display size Centre works against.
func WithDisplay(width, height int) Option {
	return func(b *Backend) {
		b.display = image.Pt(width, height)
	}
}

// WithBudget caps the graphics memory of every context the backend makes.
func WithBudget(bytes uint64) Option {
	return func(b *Backend) {
		b.budget = bytes
	}
}

// WithoutEcho stops SetSize and SetPosition from producing the events a
// real window manager would send back.
func WithoutEcho() Option {
	return func(b *Backend) {
		b.noEcho = true
	}
}

// New creates a closed backend on a 1920x1080 display.
func New(opts ...Option) *Backend {
	b := &Backend{
		wake:    make(chan struct{}, 1),
		display: image.Pt(1920, 1080),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ window.Backend = (*Backend)(nil)

func (b *Backend) Open(m window.Mode) (gfx.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return nil, errors.InvalidInput(errors.PhaseWindow, "headless window already open")
	}
	b.open, b.closed = true, false
	b.mode = m
	b.gctx = gfx.NewMemoryContext(b.budget)
	b.record("open %dx%d fullscreen=%t", m.Width, m.Height, m.Fullscreen)
	return b.gctx, nil
}

func (b *Backend) Recreate(m window.Mode) (gfx.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	b.record("recreate %dx%d fullscreen=%t", m.Width, m.Height, m.Fullscreen)
	if b.recreate != nil {
		err := b.recreate
		b.recreate = nil
		return nil, err
	}
	b.gctx.Lose()
	b.gctx = gfx.NewMemoryContext(b.budget)
	b.mode = m
	b.recreated++
	return b.gctx, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil
	}
	b.open, b.closed = false, true
	b.record("close")
	return nil
}

func (b *Backend) WaitEvents(ctx context.Context) ([]window.Event, error) {
	if evs := b.take(); len(evs) > 0 {
		return evs, nil
	}
	select {
	case <-b.wake:
		return b.take(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Backend) take() []window.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	evs := b.pending
	b.pending = nil
	return evs
}

func (b *Backend) Wake() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Backend) SetSize(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}
	b.mode.Width, b.mode.Height = width, height
	b.record("size %dx%d", width, height)
	b.echo(window.Event{Kind: window.EventResize, Width: width, Height: height})
	return nil
}

func (b *Backend) SetPosition(x, y int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}
	b.pos = image.Pt(x, y)
	b.record("position %d,%d", x, y)
	b.echo(window.Event{Kind: window.EventMove, X: x, Y: y})
	return nil
}

func (b *Backend) Centre() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}
	b.pos = image.Pt((b.display.X-b.mode.Width)/2, (b.display.Y-b.mode.Height)/2)
	b.record("position %d,%d", b.pos.X, b.pos.Y)
	b.echo(window.Event{Kind: window.EventMove, X: b.pos.X, Y: b.pos.Y})
	return nil
}

func (b *Backend) SetTitle(title string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}
	b.title = title
	b.record("title %q", title)
	return nil
}

func (b *Backend) SetIcon(img image.Image) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}
	b.icon = img
	if img == nil {
		b.record("icon default")
	} else {
		r := img.Bounds()
		b.record("icon %dx%d", r.Dx(), r.Dy())
	}
	return nil
}

func (b *Backend) Clipboard() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return "", err
	}
	return b.clipboard, nil
}

func (b *Backend) SetClipboard(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}
	b.clipboard = text
	return nil
}

// Inject queues native events as if the display had produced them and
// wakes the window thread. Safe to call from any goroutine.
func (b *Backend) Inject(evs ...window.Event) {
	b.mu.Lock()
	b.pending = append(b.pending, evs...)
	b.mu.Unlock()
	b.Wake()
}

// FailNextRecreate makes the next Recreate fail with err.
func (b *Backend) FailNextRecreate(err error) {
	b.mu.Lock()
	b.recreate = err
	b.mu.Unlock()
}

// Calls returns the operations performed so far, in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

// State returns the current title, mode and position.
func (b *Backend) State() (title string, m window.Mode, pos image.Point) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.title, b.mode, b.pos
}

// Icon returns the icon last set.
func (b *Backend) Icon() image.Image {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.icon
}

// Context returns the current graphics context.
func (b *Backend) Context() *gfx.MemoryContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gctx
}

// Recreated returns how many times the context was rebuilt.
func (b *Backend) Recreated() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recreated
}

// Closed reports whether the window was opened and then closed.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) checkOpen() error {
	if !b.open {
		return errors.NotInitialized(errors.PhaseWindow, "headless window")
	}
	return nil
}

func (b *Backend) record(format string, args ...any) {
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
}

// echo queues an event under b.mu and wakes the waiter.
func (b *Backend) echo(ev window.Event) {
	if b.noEcho {
		return
	}
	b.pending = append(b.pending, ev)
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

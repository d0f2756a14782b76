package window

import (
	"context"
	stderrors "errors"
	"image"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-stage/command"
	"github.com/wippyai/wasm-stage/errors"
	"github.com/wippyai/wasm-stage/gfx"
)

// Window is the consumer side of the window thread. Run owns the backend,
// the graphics device and the command loop; every other method is a
// producer entry point safe to call from any goroutine.
type Window struct {
	backend  Backend
	device   *gfx.Device
	queue    *command.Queue[Command]
	disp     *command.Dispatcher[Command]
	logger   *zap.Logger
	events   chan Event
	mode     Mode
	iconSize int
	modeMu   sync.Mutex
	running  atomic.Bool
	dropped  atomic.Uint64
}

// Option configures a Window.
type Option func(*Window)

// WithLogger sets the window logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Window) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDevice uses dev instead of a fresh device.
func WithDevice(dev *gfx.Device) Option {
	return func(w *Window) {
		w.device = dev
	}
}

// WithMode sets the mode the window opens in.
func WithMode(m Mode) Option {
	return func(w *Window) {
		w.mode = m
	}
}

// WithIconSize sets the edge length icons are normalized to.
func WithIconSize(n int) Option {
	return func(w *Window) {
		if n > 0 {
			w.iconSize = n
		}
	}
}

// WithEventBuffer sets how many events may wait for the script goroutine
// before new ones are dropped.
func WithEventBuffer(n int) Option {
	return func(w *Window) {
		if n > 0 {
			w.events = make(chan Event, n)
		}
	}
}

// New creates a window over b. Nothing native happens until Run.
func New(b Backend, opts ...Option) *Window {
	w := &Window{
		backend:  b,
		logger:   zap.NewNop(),
		mode:     Mode{Width: 800, Height: 600},
		iconSize: DefaultIconSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.events == nil {
		w.events = make(chan Event, 64)
	}
	if w.device == nil {
		w.device = gfx.NewDevice(nil, gfx.WithLogger(w.logger))
	}
	w.device.OnGarbage(b.Wake)

	w.queue = command.NewQueue[Command](Tags,
		command.WithLogger(w.logger),
		command.WithWaker(command.WakerFunc(b.Wake)))
	w.disp = command.NewDispatcher[Command](Tags, w.logger)
	w.install()
	return w
}

func (w *Window) install() {
	handlers := map[command.Tag]command.Handler[Command]{
		TagResize:       w.onResize,
		TagMove:         w.onMove,
		TagCentre:       w.onCentre,
		TagSetTitle:     w.onSetTitle,
		TagSetMode:      w.onSetMode,
		TagSetIcon:      w.onSetIcon,
		TagQuit:         w.onQuit,
		TagSetClipboard: w.onSetClipboard,
		TagGetClipboard: w.onGetClipboard,
		TagExec:         w.onExec,
	}
	for tag, h := range handlers {
		// Every tag of Tags is valid.
		_ = w.disp.Handle(tag, h)
	}
}

// Device returns the graphics device. Use it from the window thread only.
func (w *Window) Device() *gfx.Device {
	return w.device
}

// Events delivers native events to the script goroutine. It is closed when
// Run returns.
func (w *Window) Events() <-chan Event {
	return w.events
}

// Mode returns the current display mode.
func (w *Window) Mode() Mode {
	w.modeMu.Lock()
	defer w.modeMu.Unlock()
	return w.mode
}

// Dropped returns how many events were discarded because the script
// goroutine fell behind.
func (w *Window) Dropped() uint64 {
	return w.dropped.Load()
}

// Run opens the window and processes commands until Quit, ctx ends, or a
// fatal command error. It pins the calling goroutine to its OS thread for
// the duration; call it from the goroutine that must own the native
// window, usually main.
func (w *Window) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.InvalidInput(errors.PhaseWindow, "window is already running")
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.events)

	gctx, err := w.backend.Open(w.Mode())
	if err != nil {
		w.queue.Close()
		w.queue.Abandon(command.ErrShutdown)
		return errors.Wrap(errors.PhaseWindow, errors.KindCreation, err, "open window")
	}
	w.device.SetContext(gctx)
	w.logger.Info("window opened", zap.Any("mode", w.Mode()))

	loop := command.NewLoop(w.queue, w.disp,
		command.WithLoopLogger(w.logger),
		command.WithPoller(command.PollerFunc(w.poll)))
	err = loop.Run(ctx)

	w.queue.Close()
	w.queue.Abandon(command.ErrShutdown)
	w.device.Close()
	if cerr := w.backend.Close(); cerr != nil {
		w.logger.Warn("window close failed", zap.Error(cerr))
	}
	w.logger.Info("window closed", zap.Uint64("dropped_events", w.dropped.Load()))

	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Window) poll(ctx context.Context) error {
	w.device.Collect()
	evs, err := w.backend.WaitEvents(ctx)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		if ev.Kind == EventResize {
			w.modeMu.Lock()
			w.mode.Width, w.mode.Height = ev.Width, ev.Height
			w.modeMu.Unlock()
		}
		select {
		case w.events <- ev:
		default:
			w.dropped.Add(1)
			w.logger.Warn("event dropped", zap.Stringer("kind", ev.Kind))
		}
	}
	return nil
}

func (w *Window) onResize(_ context.Context, c Command) error {
	r := c.(Resize)
	if r.Width <= 0 || r.Height <= 0 {
		return errors.InvalidInput(errors.PhaseWindow, "window size must be positive")
	}
	return w.backend.SetSize(r.Width, r.Height)
}

func (w *Window) onMove(_ context.Context, c Command) error {
	m := c.(Move)
	return w.backend.SetPosition(m.X, m.Y)
}

func (w *Window) onCentre(context.Context, Command) error {
	return w.backend.Centre()
}

func (w *Window) onSetTitle(_ context.Context, c Command) error {
	return w.backend.SetTitle(c.(SetTitle).Title)
}

func (w *Window) onSetMode(_ context.Context, c Command) error {
	req := c.(SetMode)
	cur := w.Mode()
	next := req.Mode
	if req.FullscreenOnly {
		next = cur
		next.Fullscreen = req.Mode.Fullscreen
	}
	if next.Width <= 0 || next.Height <= 0 {
		return errors.InvalidInput(errors.PhaseWindow, "mode size must be positive")
	}
	if next == cur && w.device.Context() != nil {
		return nil
	}

	err := w.device.ContextLost(func() (gfx.Context, error) {
		return w.backend.Recreate(next)
	})
	if w.device.Context() != nil {
		w.modeMu.Lock()
		w.mode = next
		w.modeMu.Unlock()
	}
	return err
}

func (w *Window) onSetIcon(_ context.Context, c Command) error {
	img := c.(SetIcon).Image
	if img == nil {
		return w.backend.SetIcon(nil)
	}
	return w.backend.SetIcon(normalizeIcon(img, w.iconSize))
}

func (w *Window) onQuit(context.Context, Command) error {
	w.queue.Close()
	return nil
}

func (w *Window) onSetClipboard(_ context.Context, c Command) error {
	return w.backend.SetClipboard(c.(SetClipboard).Text)
}

func (w *Window) onGetClipboard(_ context.Context, c Command) error {
	g := c.(GetClipboard)
	text, err := w.backend.Clipboard()
	g.Reply.Resolve(text, err)
	return err
}

func (w *Window) onExec(_ context.Context, c Command) (err error) {
	e := c.(Exec)
	defer func() {
		if p := recover(); p != nil {
			err = errors.New(errors.PhaseDispatch, errors.KindTrap).
				Subject("exec").
				Detail("panic: %v", p).
				Build()
		}
		e.Reply.Resolve(struct{}{}, err)
	}()
	return e.Fn(w.device)
}

func (w *Window) send(c Command) error {
	return w.queue.AddAndForceWake(c)
}

// Resize requests a new client size.
func (w *Window) Resize(width, height int) error {
	return w.send(Resize{Width: width, Height: height})
}

// Move requests a new window position.
func (w *Window) Move(x, y int) error {
	return w.send(Move{X: x, Y: y})
}

// Centre requests the window be centred on its display.
func (w *Window) Centre() error {
	return w.send(Centre{})
}

// SetTitle requests a new window title.
func (w *Window) SetTitle(title string) error {
	return w.send(SetTitle{Title: title})
}

// SetMode requests a display mode change. The graphics context is rebuilt
// and every context-bound object recreated.
func (w *Window) SetMode(m Mode) error {
	return w.send(SetMode{Mode: m})
}

// SetFullscreen toggles fullscreen, keeping the current size.
func (w *Window) SetFullscreen(on bool) error {
	return w.send(SetMode{Mode: Mode{Fullscreen: on}, FullscreenOnly: true})
}

// SetIcon requests a new window icon; nil restores the default.
func (w *Window) SetIcon(img image.Image) error {
	return w.send(SetIcon{Image: img})
}

// SetClipboard requests the clipboard be set to text.
func (w *Window) SetClipboard(text string) error {
	return w.send(SetClipboard{Text: text})
}

// Clipboard reads the clipboard on the window thread and waits for the
// result. ctx bounds the wait only.
func (w *Window) Clipboard(ctx context.Context) (string, error) {
	r := command.NewReply[string]()
	return command.Call[Command](ctx, w.queue, GetClipboard{Reply: r}, r)
}

// Do runs fn on the window thread and waits for it. ctx bounds the wait
// only.
func (w *Window) Do(ctx context.Context, fn func(dev *gfx.Device) error) error {
	r := command.NewReply[struct{}]()
	_, err := command.Call[Command](ctx, w.queue, Exec{Fn: fn, Reply: r}, r)
	return err
}

// Quit asks the window to close after the commands queued before it.
func (w *Window) Quit() error {
	return w.send(Quit{})
}

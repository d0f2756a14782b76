package window_test

import (
	"context"
	"errors"
	"image"
	"runtime"
	"slices"
	"testing"
	"time"

	wserrors "github.com/wippyai/wasm-stage/errors"
	"github.com/wippyai/wasm-stage/gfx"
	"github.com/wippyai/wasm-stage/window"
	"github.com/wippyai/wasm-stage/window/headless"
)

func start(t *testing.T, b window.Backend, opts ...window.Option) (*window.Window, <-chan error) {
	t.Helper()
	w := window.New(b, opts...)
	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	return w, done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("window did not stop")
		return nil
	}
}

// barrier returns once the window thread has handled everything queued
// before it, including one native event poll.
func barrier(t *testing.T, w *window.Window) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for range 2 {
		if err := w.Do(ctx, func(*gfx.Device) error { return nil }); err != nil {
			t.Fatalf("barrier: %v", err)
		}
	}
}

func TestWindow_CommandsReachBackend(t *testing.T) {
	b := headless.New()
	w, done := start(t, b)

	_ = w.SetTitle("demo")
	_ = w.Resize(1024, 768)
	_ = w.Move(10, 20)
	_ = w.Centre()
	_ = w.SetClipboard("hello")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	text, err := w.Clipboard(ctx)
	if err != nil || text != "hello" {
		t.Fatalf("Clipboard = %q, %v", text, err)
	}
	barrier(t, w)

	if got := w.Mode(); got.Width != 1024 || got.Height != 768 {
		t.Fatalf("mode after resize event = %+v", got)
	}

	if err := w.Quit(); err != nil {
		t.Fatal(err)
	}
	if err := wait(t, done); err != nil {
		t.Fatalf("Run = %v", err)
	}

	want := []string{
		"open 800x600 fullscreen=false",
		`title "demo"`,
		"size 1024x768",
		"position 10,20",
		"position 448,156",
		"close",
	}
	if got := b.Calls(); !slices.Equal(got, want) {
		t.Fatalf("calls:\n got  %q\n want %q", got, want)
	}

	var kinds []window.EventKind
	for ev := range w.Events() {
		kinds = append(kinds, ev.Kind)
	}
	if want := []window.EventKind{window.EventResize, window.EventMove, window.EventMove}; !slices.Equal(kinds, want) {
		t.Fatalf("events = %v", kinds)
	}
}

func TestWindow_RejectsAfterQuit(t *testing.T) {
	w, done := start(t, headless.New())
	_ = w.Quit()
	_ = wait(t, done)

	err := w.SetTitle("late")
	if !errors.Is(err, wserrors.New(wserrors.PhaseQueue, wserrors.KindClosed).Build()) {
		t.Fatalf("SetTitle after quit = %v", err)
	}
	if _, err := w.Clipboard(context.Background()); err == nil {
		t.Fatal("Clipboard after quit should fail")
	}
}

func TestWindow_InvalidResizeDoesNotStopLoop(t *testing.T) {
	b := headless.New(headless.WithoutEcho())
	w, done := start(t, b)

	_ = w.Resize(0, 10)
	_ = w.SetTitle("still running")
	barrier(t, w)
	_ = w.Quit()
	_ = wait(t, done)

	if title, _, _ := b.State(); title != "still running" {
		t.Fatalf("title = %q", title)
	}
}

func TestWindow_SetModeRebuildsContext(t *testing.T) {
	b := headless.New()
	w, done := start(t, b)
	ctx := context.Background()

	var a, c *gfx.Texture
	err := w.Do(ctx, func(dev *gfx.Device) error {
		var err error
		if a, err = dev.NewTexture("a", gfx.DefaultTextureParams(1, 1)); err != nil {
			return err
		}
		c, err = dev.NewTexture("c", gfx.DefaultTextureParams(2, 2))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	_ = w.SetFullscreen(true)
	err = w.Do(ctx, func(dev *gfx.Device) error {
		gen := b.Context().Generation()
		if !a.Initialized() || !c.Initialized() {
			return errors.New("textures not restored")
		}
		if a.Generation() != gen || c.Generation() != gen {
			return errors.New("textures belong to the old context")
		}
		if n, _ := b.Context().Live(); n != 2 {
			return errors.New("new context should hold both textures")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if m := w.Mode(); !m.Fullscreen || m.Width != 800 {
		t.Fatalf("mode = %+v", m)
	}
	if b.Recreated() != 1 {
		t.Fatalf("Recreated = %d", b.Recreated())
	}

	// Same mode again is not a context loss.
	_ = w.SetFullscreen(true)
	barrier(t, w)
	if b.Recreated() != 1 {
		t.Fatal("unchanged mode should not recreate the context")
	}

	_ = w.Quit()
	_ = wait(t, done)
}

func TestWindow_SetModeRecreateFailure(t *testing.T) {
	b := headless.New()
	w, done := start(t, b)
	ctx := context.Background()

	var tex *gfx.Texture
	_ = w.Do(ctx, func(dev *gfx.Device) error {
		var err error
		tex, err = dev.NewTexture("t", gfx.DefaultTextureParams(4, 4))
		return err
	})

	b.FailNextRecreate(errors.New("mode not supported"))
	_ = w.SetMode(window.Mode{Width: 640, Height: 480})
	_ = w.Do(ctx, func(dev *gfx.Device) error {
		if tex.Initialized() || dev.Context() != nil {
			t.Error("texture should stay released without a context")
		}
		return nil
	})
	if m := w.Mode(); m.Width != 800 {
		t.Fatalf("failed mode change should keep the old mode, got %+v", m)
	}

	_ = w.SetMode(window.Mode{Width: 640, Height: 480})
	_ = w.Do(ctx, func(dev *gfx.Device) error {
		if !tex.Initialized() {
			t.Error("texture should be rebuilt by the next successful mode change")
		}
		return nil
	})

	_ = w.Quit()
	_ = wait(t, done)
}

func TestWindow_SameModeAfterFailedRecreate(t *testing.T) {
	b := headless.New()
	w, done := start(t, b)
	ctx := context.Background()

	var tex *gfx.Texture
	_ = w.Do(ctx, func(dev *gfx.Device) error {
		var err error
		tex, err = dev.NewTexture("t", gfx.DefaultTextureParams(4, 4))
		return err
	})

	b.FailNextRecreate(errors.New("mode not supported"))
	_ = w.SetMode(window.Mode{Width: 640, Height: 480})

	// Asking for the mode the window already has must still rebuild the
	// context that the failed change lost.
	_ = w.SetMode(w.Mode())
	err := w.Do(ctx, func(dev *gfx.Device) error {
		if dev.Context() == nil {
			return errors.New("device still has no context")
		}
		if !tex.Initialized() {
			return errors.New("texture not restored")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if b.Recreated() != 1 {
		t.Fatalf("Recreated = %d, want 1", b.Recreated())
	}

	_ = w.Quit()
	_ = wait(t, done)
}

//go:noinline
func dropTexture(t *testing.T, w *window.Window) {
	err := w.Do(context.Background(), func(dev *gfx.Device) error {
		_, err := dev.NewTexture("dropped", gfx.DefaultTextureParams(8, 8))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWindow_ReleasesCollectedTextures(t *testing.T) {
	b := headless.New()
	w, done := start(t, b)

	dropTexture(t, w)
	deadline := time.Now().Add(5 * time.Second)
	for {
		runtime.GC()
		barrier(t, w)
		var live int
		_ = w.Do(context.Background(), func(*gfx.Device) error {
			live, _ = b.Context().Live()
			return nil
		})
		if live == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("collected texture still holds native memory, live = %d", live)
		}
		time.Sleep(10 * time.Millisecond)
	}

	_ = w.Quit()
	_ = wait(t, done)
}

func TestWindow_SetIcon(t *testing.T) {
	b := headless.New()
	w, done := start(t, b, window.WithIconSize(32))

	_ = w.SetIcon(image.NewRGBA(image.Rect(0, 0, 100, 50)))
	barrier(t, w)
	if icon := b.Icon(); icon == nil || icon.Bounds().Dx() != 32 || icon.Bounds().Dy() != 32 {
		t.Fatalf("icon = %v", icon)
	}

	_ = w.SetIcon(nil)
	_ = w.Quit()
	_ = wait(t, done)

	if b.Icon() != nil {
		t.Fatal("nil icon should restore the default")
	}
}

func TestWindow_ForwardsAndDropsEvents(t *testing.T) {
	b := headless.New()
	w, done := start(t, b, window.WithEventBuffer(1))
	barrier(t, w)

	b.Inject(
		window.Event{Kind: window.EventFocus, Focused: true},
		window.Event{Kind: window.EventFocus, Focused: false},
		window.Event{Kind: window.EventClose},
	)
	barrier(t, w)

	if w.Dropped() != 2 {
		t.Fatalf("Dropped = %d, want 2", w.Dropped())
	}
	ev := <-w.Events()
	if ev.Kind != window.EventFocus || !ev.Focused {
		t.Fatalf("first event = %+v", ev)
	}

	_ = w.Quit()
	_ = wait(t, done)
}

func TestWindow_ExecPanic(t *testing.T) {
	w, done := start(t, headless.New())

	err := w.Do(context.Background(), func(*gfx.Device) error { panic("bad") })
	var se *wserrors.Error
	if !errors.As(err, &se) || se.Kind != wserrors.KindTrap {
		t.Fatalf("Do = %v", err)
	}
	barrier(t, w)

	_ = w.Quit()
	_ = wait(t, done)
}

func TestWindow_ContextCancelStops(t *testing.T) {
	b := headless.New()
	w := window.New(b)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	barrier(t, w)
	cancel()
	if err := wait(t, done); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if !b.Closed() {
		t.Fatal("backend should be closed")
	}
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("a window runs once")
	}
}

type failingOpen struct {
	*headless.Backend
}

func (failingOpen) Open(window.Mode) (gfx.Context, error) {
	return nil, errors.New("no display")
}

func TestWindow_OpenFailure(t *testing.T) {
	w := window.New(failingOpen{headless.New()})
	err := w.Run(context.Background())
	if !errors.Is(err, wserrors.New(wserrors.PhaseWindow, wserrors.KindCreation).Build()) {
		t.Fatalf("Run = %v", err)
	}
	if _, ok := <-w.Events(); ok {
		t.Fatal("events should be closed")
	}
	if err := w.Quit(); err == nil {
		t.Fatal("commands after a failed open should be rejected")
	}
}

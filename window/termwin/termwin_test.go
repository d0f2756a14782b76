package termwin

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	wserrors "github.com/wippyai/wasm-stage/errors"
	"github.com/wippyai/wasm-stage/window"
)

type memClipboard struct{ text string }

func (m *memClipboard) ReadAll() (string, error) { return m.text, nil }
func (m *memClipboard) WriteAll(s string) error  { m.text = s; return nil }

func newTest(t *testing.T) (*Backend, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	b := New(
		WithOutput(&out),
		WithFD(-1),
		WithClipboard(&memClipboard{}),
		WithPollInterval(time.Millisecond),
	)
	t.Cleanup(func() { _ = b.Close() })
	return b, &out
}

func TestBackend_OpenFullscreen(t *testing.T) {
	b, out := newTest(t)

	if _, err := b.Open(window.Mode{Width: 80, Height: 24, Fullscreen: true}); err != nil {
		t.Fatal(err)
	}
	if out.String() != enterAltScreen {
		t.Fatalf("output = %q", out.String())
	}
	if _, err := b.Open(window.Mode{Width: 80, Height: 24}); err == nil {
		t.Fatal("second Open should fail")
	}

	out.Reset()
	_ = b.Close()
	if out.String() != leaveAltScreen {
		t.Fatalf("Close should leave the alternate screen, got %q", out.String())
	}
}

func TestBackend_ControlSequences(t *testing.T) {
	b, out := newTest(t)
	_, _ = b.Open(window.Mode{Width: 80, Height: 24})

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"title", func() error { return b.SetTitle("demo\x07\x1b") }, "\x1b]2;demo\x07"},
		{"size", func() error { return b.SetSize(120, 40) }, "\x1b[8;40;120t"},
		{"position", func() error { return b.SetPosition(5, 7) }, "\x1b[3;5;7t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			if err := tt.call(); err != nil {
				t.Fatal(err)
			}
			if out.String() != tt.want {
				t.Fatalf("wrote %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestBackend_Unsupported(t *testing.T) {
	b, _ := newTest(t)
	_, _ = b.Open(window.Mode{Width: 80, Height: 24})

	unsupported := wserrors.New(wserrors.PhaseWindow, wserrors.KindUnsupported).Build()
	if err := b.Centre(); !errors.Is(err, unsupported) {
		t.Fatalf("Centre = %v", err)
	}
	err := b.SetIcon(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	if !errors.Is(err, unsupported) || !strings.Contains(err.Error(), "cannot set icon") {
		t.Fatalf("SetIcon = %v", err)
	}
	if err := b.SetIcon(nil); err != nil {
		t.Fatal("restoring the default icon is a no-op")
	}
}

func TestBackend_ResizeEvent(t *testing.T) {
	b, _ := newTest(t)
	_, _ = b.Open(window.Mode{Width: 80, Height: 24})
	_ = b.SetSize(100, 30)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	evs, err := b.WaitEvents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || evs[0].Kind != window.EventResize || evs[0].Width != 100 || evs[0].Height != 30 {
		t.Fatalf("events = %+v", evs)
	}
}

func TestBackend_WakeAndCancel(t *testing.T) {
	b, _ := newTest(t)
	_, _ = b.Open(window.Mode{Width: 80, Height: 24})

	b.Wake()
	b.Wake()
	evs, err := b.WaitEvents(context.Background())
	if err != nil || len(evs) != 0 {
		t.Fatalf("wake = %v, %v", evs, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.WaitEvents(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled wait = %v", err)
	}
}

func TestBackend_RecreateTogglesAltScreen(t *testing.T) {
	b, out := newTest(t)
	first, _ := b.Open(window.Mode{Width: 80, Height: 24})

	out.Reset()
	next, err := b.Recreate(window.Mode{Width: 80, Height: 24, Fullscreen: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != enterAltScreen {
		t.Fatalf("output = %q", out.String())
	}
	if next.Generation() == first.Generation() {
		t.Fatal("recreate should produce a new context")
	}

	out.Reset()
	_, _ = b.Recreate(window.Mode{Width: 90, Height: 24})
	if out.String() != leaveAltScreen+"\x1b[8;24;90t" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestBackend_Clipboard(t *testing.T) {
	b, _ := newTest(t)
	if err := b.SetClipboard("copied"); err != nil {
		t.Fatal(err)
	}
	if s, _ := b.Clipboard(); s != "copied" {
		t.Fatalf("Clipboard = %q", s)
	}
}

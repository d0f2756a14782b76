package window

import (
	"context"
	"image"

	"github.com/wippyai/wasm-stage/gfx"
)

// Mode is a display mode request. A change of Fullscreen or of the
// framebuffer size may force the backend to rebuild its graphics context.
type Mode struct {
	Width      int
	Height     int
	Fullscreen bool
}

// EventKind identifies a native window event.
type EventKind uint8

const (
	EventResize EventKind = iota + 1
	EventMove
	EventFocus
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventResize:
		return "resize"
	case EventMove:
		return "move"
	case EventFocus:
		return "focus"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Event is a native window event forwarded to the script goroutine.
type Event struct {
	Kind    EventKind
	Width   int
	Height  int
	X       int
	Y       int
	Focused bool
}

// Backend is a native windowing library. Apart from Wake, every method is
// called from the window thread only.
type Backend interface {
	// Open creates the window and its graphics context.
	Open(m Mode) (gfx.Context, error)

	// Recreate rebuilds the graphics context for a new mode. The previous
	// context is invalid afterwards.
	Recreate(m Mode) (gfx.Context, error)

	// Close destroys the window.
	Close() error

	// WaitEvents blocks until native events arrive, Wake is called, or ctx
	// ends. It may return an empty slice.
	WaitEvents(ctx context.Context) ([]Event, error)

	// Wake interrupts WaitEvents. Safe to call from any goroutine.
	Wake()

	SetSize(width, height int) error
	SetPosition(x, y int) error
	Centre() error
	SetTitle(title string) error

	// SetIcon sets the window icon. nil restores the default icon.
	SetIcon(img image.Image) error

	Clipboard() (string, error)
	SetClipboard(text string) error
}

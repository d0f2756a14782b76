// Package termwin is a window backend for a text terminal. The "window" is
// the terminal itself: its size is measured in cells, the title and size
// are driven with xterm control sequences and fullscreen maps to the
// alternate screen.
package termwin

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/wippyai/wasm-stage/errors"
	"github.com/wippyai/wasm-stage/gfx"
	"github.com/wippyai/wasm-stage/window"
)

const (
	enterAltScreen = "\x1b[?1049h"
	leaveAltScreen = "\x1b[?1049l"
)

// Clipboard is the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error) {
	if clipboard.Unsupported {
		return "", errors.Unsupported(errors.PhaseWindow, "system clipboard")
	}
	return clipboard.ReadAll()
}

func (systemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errors.Unsupported(errors.PhaseWindow, "system clipboard")
	}
	return clipboard.WriteAll(text)
}

// Backend implements window.Backend on a terminal.
type Backend struct {
	out      io.Writer
	clip     Clipboard
	wake     chan struct{}
	signals  chan os.Signal
	gctx     *gfx.MemoryContext
	size     image.Point
	reported image.Point
	interval time.Duration
	fd       int
	budget   uint64
	alt      bool
	open     bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithOutput sets where control sequences are written.
func WithOutput(w io.Writer) Option {
	return func(b *Backend) {
		b.out = w
	}
}

// WithFD sets the terminal file descriptor used to measure the size.
func WithFD(fd int) Option {
	return func(b *Backend) {
		b.fd = fd
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) Option {
	return func(b *Backend) {
		b.clip = c
	}
}

// WithPollInterval sets how often the terminal size is checked.
func WithPollInterval(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithBudget caps the graphics memory of every context the backend makes.
func WithBudget(bytes uint64) Option {
	return func(b *Backend) {
		b.budget = bytes
	}
}

// New creates a backend on stdout.
func New(opts ...Option) *Backend {
	b := &Backend{
		out:      os.Stdout,
		fd:       int(os.Stdout.Fd()),
		clip:     systemClipboard{},
		wake:     make(chan struct{}, 1),
		signals:  make(chan os.Signal, 1),
		interval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ window.Backend = (*Backend)(nil)

// IsTerminal reports whether the backend is attached to a real terminal.
func (b *Backend) IsTerminal() bool {
	return term.IsTerminal(b.fd)
}

func (b *Backend) Open(m window.Mode) (gfx.Context, error) {
	if b.open {
		return nil, errors.InvalidInput(errors.PhaseWindow, "terminal window already open")
	}
	b.size = image.Pt(m.Width, m.Height)
	b.size = b.measure()
	b.reported = b.size

	if m.Fullscreen {
		if err := b.write(enterAltScreen); err != nil {
			return nil, err
		}
		b.alt = true
	}
	signal.Notify(b.signals, os.Interrupt)
	b.open = true
	b.gctx = gfx.NewMemoryContext(b.budget)
	return b.gctx, nil
}

func (b *Backend) Recreate(m window.Mode) (gfx.Context, error) {
	if !b.open {
		return nil, errors.NotInitialized(errors.PhaseWindow, "terminal window")
	}
	if m.Fullscreen != b.alt {
		seq := leaveAltScreen
		if m.Fullscreen {
			seq = enterAltScreen
		}
		if err := b.write(seq); err != nil {
			return nil, err
		}
		b.alt = m.Fullscreen
	}
	if m.Width > 0 && m.Height > 0 && image.Pt(m.Width, m.Height) != b.size {
		if err := b.SetSize(m.Width, m.Height); err != nil {
			return nil, err
		}
	}

	b.gctx.Lose()
	b.gctx = gfx.NewMemoryContext(b.budget)
	return b.gctx, nil
}

func (b *Backend) Close() error {
	if !b.open {
		return nil
	}
	b.open = false
	signal.Stop(b.signals)
	if b.alt {
		b.alt = false
		return b.write(leaveAltScreen)
	}
	return nil
}

func (b *Backend) WaitEvents(ctx context.Context) ([]window.Event, error) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.wake:
			return nil, nil
		case <-b.signals:
			return []window.Event{{Kind: window.EventClose}}, nil
		case <-ticker.C:
			if cur := b.measure(); cur != b.reported {
				b.reported = cur
				return []window.Event{{Kind: window.EventResize, Width: cur.X, Height: cur.Y}}, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *Backend) Wake() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// SetSize asks the terminal emulator to resize to width columns and height
// rows. Emulators may ignore the request; the size events report what
// actually happened.
func (b *Backend) SetSize(width, height int) error {
	if err := b.write(fmt.Sprintf("\x1b[8;%d;%dt", height, width)); err != nil {
		return err
	}
	if !b.IsTerminal() {
		b.size = image.Pt(width, height)
	}
	return nil
}

func (b *Backend) SetPosition(x, y int) error {
	return b.write(fmt.Sprintf("\x1b[3;%d;%dt", x, y))
}

func (b *Backend) Centre() error {
	return errors.Unsupported(errors.PhaseWindow, "centring a terminal")
}

func (b *Backend) SetTitle(title string) error {
	return b.write("\x1b]2;" + sanitize(title) + "\x07")
}

func (b *Backend) SetIcon(img image.Image) error {
	if img == nil {
		return nil
	}
	return errors.New(errors.PhaseWindow, errors.KindUnsupported).
		Path("window", "icon").
		Subject("termwin").
		Detail("cannot set icon").
		Build()
}

func (b *Backend) Clipboard() (string, error) {
	return b.clip.ReadAll()
}

func (b *Backend) SetClipboard(text string) error {
	return b.clip.WriteAll(text)
}

// measure returns the terminal size in cells, or the last known size when
// the descriptor is not a terminal.
func (b *Backend) measure() image.Point {
	if !b.IsTerminal() {
		return b.size
	}
	w, h, err := term.GetSize(b.fd)
	if err != nil {
		return b.size
	}
	b.size = image.Pt(w, h)
	return b.size
}

func (b *Backend) write(s string) error {
	if _, err := io.WriteString(b.out, s); err != nil {
		return errors.Wrap(errors.PhaseWindow, errors.KindInvalidInput, err, "write control sequence")
	}
	return nil
}

// sanitize drops control characters so a title cannot end the sequence
// early.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

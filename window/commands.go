package window

import (
	"image"

	"github.com/wippyai/wasm-stage/command"
	"github.com/wippyai/wasm-stage/gfx"
)

// Command tags. Append new tags before TagSetClipboard if they are rare
// and should be logged, after it otherwise.
const (
	TagResize command.Tag = iota + 1
	TagMove
	TagCentre
	TagSetTitle
	TagSetMode
	TagSetIcon
	TagQuit
	TagSetClipboard
	TagGetClipboard
	TagExec
)

// Tags is the window command set. Clipboard and exec traffic is not
// logged.
var Tags = command.NewEnum(TagSetClipboard,
	"none",
	"resize",
	"move",
	"centre",
	"set_title",
	"set_mode",
	"set_icon",
	"quit",
	"set_clipboard",
	"get_clipboard",
	"exec",
)

// Command is any window command payload.
type Command interface {
	command.Command
}

type Resize struct{ Width, Height int }

type Move struct{ X, Y int }

type Centre struct{}

type SetTitle struct{ Title string }

// SetMode changes the display mode. With FullscreenOnly set only
// Mode.Fullscreen is applied and the current size is kept.
type SetMode struct {
	Mode           Mode
	FullscreenOnly bool
}

type SetIcon struct{ Image image.Image }

type Quit struct{}

type SetClipboard struct{ Text string }

// GetClipboard is synchronous: the handler resolves Reply.
type GetClipboard struct {
	Reply *command.Reply[string]
}

// Exec runs Fn on the window thread with the graphics device, for work
// that must touch context-bound objects. It is synchronous.
type Exec struct {
	Fn    func(dev *gfx.Device) error
	Reply *command.Reply[struct{}]
}

func (Resize) Tag() command.Tag       { return TagResize }
func (Move) Tag() command.Tag         { return TagMove }
func (Centre) Tag() command.Tag       { return TagCentre }
func (SetTitle) Tag() command.Tag     { return TagSetTitle }
func (SetMode) Tag() command.Tag      { return TagSetMode }
func (SetIcon) Tag() command.Tag      { return TagSetIcon }
func (Quit) Tag() command.Tag         { return TagQuit }
func (SetClipboard) Tag() command.Tag { return TagSetClipboard }
func (GetClipboard) Tag() command.Tag { return TagGetClipboard }
func (Exec) Tag() command.Tag         { return TagExec }

func (c GetClipboard) Abandon(err error) {
	c.Reply.Abandon(err)
}

func (c Exec) Abandon(err error) {
	c.Reply.Abandon(err)
}

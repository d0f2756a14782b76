package host

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-stage/errors"
	"github.com/wippyai/wasm-stage/gfx"
	"github.com/wippyai/wasm-stage/resource"
)

// Status codes returned to the guest.
const (
	StatusOK      int32 = 0
	StatusError   int32 = -1
	StatusBadArgs int32 = -2
)

type hostFunc struct {
	fn      api.GoModuleFunc
	name    string
	params  []api.ValueType
	results []api.ValueType
}

var (
	i32  = api.ValueTypeI32
	none = []api.ValueType{}

	uniformUsage = gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
)

func (h *Host) functions() []hostFunc {
	status := []api.ValueType{i32}
	return []hostFunc{
		{name: "resize", fn: h.resize, params: []api.ValueType{i32, i32}, results: status},
		{name: "move", fn: h.move, params: []api.ValueType{i32, i32}, results: status},
		{name: "centre", fn: h.centre, params: none, results: status},
		{name: "fullscreen", fn: h.fullscreen, params: []api.ValueType{i32}, results: status},
		{name: "set_title", fn: h.setTitle, params: []api.ValueType{i32, i32}, results: status},
		{name: "clipboard_set", fn: h.clipboardSet, params: []api.ValueType{i32, i32}, results: status},
		{name: "clipboard_get", fn: h.clipboardGet, params: []api.ValueType{i32, i32}, results: status},
		{name: "texture_new", fn: h.textureNew, params: []api.ValueType{i32, i32}, results: status},
		{name: "buffer_new", fn: h.bufferNew, params: []api.ValueType{i32}, results: status},
		{name: "handle_drop", fn: h.handleDrop, params: []api.ValueType{i32}, results: status},
		{name: "set_callback", fn: h.setCallbackFn, params: []api.ValueType{i32, i32, i32}, results: status},
	}
}

// result writes the status for err into the first result slot.
func (h *Host) result(stack []uint64, name string, err error) {
	if err == nil {
		stack[0] = api.EncodeI32(StatusOK)
		return
	}
	h.logger.Warn("host call failed", zap.String("func", name), zap.Error(err))
	if badArgs(err) {
		stack[0] = api.EncodeI32(StatusBadArgs)
		return
	}
	stack[0] = api.EncodeI32(StatusError)
}

// badArgs reports whether any error in err's chain is invalid input. A
// creation error wrapping a parameter check still counts.
func badArgs(err error) bool {
	for ; err != nil; err = stderrors.Unwrap(err) {
		if se, ok := err.(*errors.Error); ok && se.Kind == errors.KindInvalidInput {
			return true
		}
	}
	return false
}

func (h *Host) resize(_ context.Context, _ api.Module, stack []uint64) {
	w, ht := api.DecodeI32(stack[0]), api.DecodeI32(stack[1])
	if w <= 0 || ht <= 0 {
		h.result(stack, "resize", errors.InvalidInput(errors.PhaseScript, "size must be positive"))
		return
	}
	h.result(stack, "resize", h.win.Resize(int(w), int(ht)))
}

func (h *Host) move(_ context.Context, _ api.Module, stack []uint64) {
	x, y := api.DecodeI32(stack[0]), api.DecodeI32(stack[1])
	h.result(stack, "move", h.win.Move(int(x), int(y)))
}

func (h *Host) centre(_ context.Context, _ api.Module, stack []uint64) {
	h.result(stack, "centre", h.win.Centre())
}

func (h *Host) fullscreen(_ context.Context, _ api.Module, stack []uint64) {
	h.result(stack, "fullscreen", h.win.SetFullscreen(api.DecodeI32(stack[0]) != 0))
}

func (h *Host) setTitle(_ context.Context, mod api.Module, stack []uint64) {
	title, err := readString(mod, stack[0], stack[1])
	if err != nil {
		h.result(stack, "set_title", err)
		return
	}
	h.result(stack, "set_title", h.win.SetTitle(title))
}

func (h *Host) clipboardSet(_ context.Context, mod api.Module, stack []uint64) {
	text, err := readString(mod, stack[0], stack[1])
	if err != nil {
		h.result(stack, "clipboard_set", err)
		return
	}
	h.result(stack, "clipboard_set", h.win.SetClipboard(text))
}

// clipboardGet copies up to cap bytes of the clipboard to ptr and returns
// the full length, so a guest can retry with a larger buffer.
func (h *Host) clipboardGet(ctx context.Context, mod api.Module, stack []uint64) {
	ptr, capacity := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	text, err := h.win.Clipboard(ctx)
	if err != nil {
		h.result(stack, "clipboard_get", err)
		return
	}
	n := min(uint32(len(text)), capacity)
	if mem := mod.Memory(); mem == nil || !mem.Write(ptr, []byte(text[:n])) {
		h.result(stack, "clipboard_get", errors.OutOfBounds(errors.PhaseScript, "clipboard buffer", int(ptr), int(n)))
		return
	}
	stack[0] = api.EncodeI32(int32(len(text)))
}

// textureNew creates a texture on the window thread and returns its
// handle, or a negative status.
func (h *Host) textureNew(ctx context.Context, _ api.Module, stack []uint64) {
	w, ht := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	if w == 0 || ht == 0 {
		h.result(stack, "texture_new", errors.InvalidInput(errors.PhaseScript, "texture size must be positive"))
		return
	}
	var tex *gfx.Texture
	err := h.win.Do(ctx, func(dev *gfx.Device) error {
		var err error
		tex, err = dev.NewTexture(fmt.Sprintf("texture %dx%d", w, ht), gfx.DefaultTextureParams(w, ht))
		return err
	})
	if err != nil {
		h.result(stack, "texture_new", err)
		return
	}
	h.insert(stack, "texture_new", TypeTexture, tex, func(any) { h.destroy(tex.Destroy) })
}

// bufferNew creates a uniform buffer of size bytes.
func (h *Host) bufferNew(ctx context.Context, _ api.Module, stack []uint64) {
	size := uint64(api.DecodeU32(stack[0]))
	if size == 0 {
		h.result(stack, "buffer_new", errors.InvalidInput(errors.PhaseScript, "buffer size must be positive"))
		return
	}
	var buf *gfx.Buffer
	err := h.win.Do(ctx, func(dev *gfx.Device) error {
		var err error
		buf, err = dev.NewBuffer(fmt.Sprintf("buffer %d", size), gfx.BufferParams{Size: size, Usage: uniformUsage})
		return err
	})
	if err != nil {
		h.result(stack, "buffer_new", err)
		return
	}
	h.insert(stack, "buffer_new", TypeBuffer, buf, func(any) { h.destroy(buf.Destroy) })
}

func (h *Host) insert(stack []uint64, name string, typeID resource.TypeID, v any, fin resource.Finalizer) {
	handle, err := h.records.Insert(typeID, v, fin)
	if err != nil {
		fin(v)
		h.result(stack, name, err)
		return
	}
	stack[0] = api.EncodeI32(int32(handle))
}

// destroy runs fn on the window thread. Once the window has stopped its
// device already destroyed every object, so a rejected command is fine.
func (h *Host) destroy(fn func()) {
	err := h.win.Do(context.Background(), func(*gfx.Device) error {
		fn()
		return nil
	})
	if err != nil {
		h.logger.Debug("native record outlived the window", zap.Error(err))
	}
}

func (h *Host) handleDrop(_ context.Context, _ api.Module, stack []uint64) {
	h.result(stack, "handle_drop", h.records.Release(resource.Handle(api.DecodeU32(stack[0]))))
}

// setCallbackFn implements set_callback(slot, name_ptr, name_len). The
// name is resolved against the calling module, so it works while the
// guest is still initializing.
func (h *Host) setCallbackFn(_ context.Context, mod api.Module, stack []uint64) {
	slot := int(api.DecodeI32(stack[0]))
	name, err := readString(mod, stack[1], stack[2])
	if err != nil {
		h.result(stack, "set_callback", err)
		return
	}
	h.result(stack, "set_callback", h.setCallback(mod, slot, name))
}

func readString(mod api.Module, ptr, size uint64) (string, error) {
	mem := mod.Memory()
	if mem == nil {
		return "", errors.InvalidInput(errors.PhaseScript, "guest exports no memory")
	}
	b, ok := mem.Read(api.DecodeU32(ptr), api.DecodeU32(size))
	if !ok {
		return "", errors.InvalidInput(errors.PhaseScript,
			fmt.Sprintf("string at %d+%d is out of guest memory", api.DecodeU32(ptr), api.DecodeU32(size)))
	}
	return string(b), nil
}

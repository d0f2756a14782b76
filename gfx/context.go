package gfx

import (
	"github.com/gogpu/gputypes"

	"github.com/wippyai/wasm-stage/errors"
)

// TextureID and BufferID name objects inside one Context generation.
type (
	TextureID uint32
	BufferID  uint32
)

// Context is the native graphics context owned by the window thread. Every
// method must be called from that thread.
type Context interface {
	// Generation changes whenever the context is recreated. IDs from an
	// older generation are meaningless.
	Generation() uint64

	CreateTexture(p TextureParams) (TextureID, error)
	DeleteTexture(id TextureID) error
	CreateBuffer(p BufferParams) (BufferID, error)
	DeleteBuffer(id BufferID) error
}

// TextureParams are the creation parameters retained by a Texture so it
// can be rebuilt after context loss.
type TextureParams struct {
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// DefaultTextureParams returns sampled RGBA8 texture parameters.
func DefaultTextureParams(width, height uint32) TextureParams {
	return TextureParams{
		Width:  width,
		Height: height,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}
}

// Validate rejects parameters no context can satisfy.
func (p TextureParams) Validate() error {
	if p.Width == 0 || p.Height == 0 {
		return errors.InvalidInput(errors.PhaseInit, "texture dimensions must be non-zero")
	}
	if p.Format == gputypes.TextureFormatUndefined {
		return errors.InvalidInput(errors.PhaseInit, "texture format is undefined")
	}
	if p.Usage == 0 {
		return errors.InvalidInput(errors.PhaseInit, "texture usage is empty")
	}
	return nil
}

// BufferParams are the creation parameters retained by a Buffer.
type BufferParams struct {
	Size  uint64
	Usage gputypes.BufferUsage
}

// Validate rejects parameters no context can satisfy.
func (p BufferParams) Validate() error {
	if p.Size == 0 {
		return errors.InvalidInput(errors.PhaseInit, "buffer size must be non-zero")
	}
	if p.Usage == 0 {
		return errors.InvalidInput(errors.PhaseInit, "buffer usage is empty")
	}
	if p.Usage&gputypes.BufferUsageMapRead != 0 && p.Usage&gputypes.BufferUsageMapWrite != 0 {
		return errors.InvalidInput(errors.PhaseInit, "buffer cannot be mapped for both read and write")
	}
	return nil
}

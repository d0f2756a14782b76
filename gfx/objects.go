package gfx

import (
	"runtime"

	"github.com/wippyai/wasm-stage/lifecycle"
)

// native is the part of an object its cleanup may read. It must not point
// back at the object, or the object could never be collected.
type native struct {
	gen  uint64
	id   uint32
	live bool
}

func (n *native) set(id uint32, gen uint64) {
	n.id, n.gen, n.live = id, gen, true
}

// take returns the handle and marks it released.
func (n *native) take() (uint32, uint64) {
	id, gen := n.id, n.gen
	n.id, n.gen, n.live = 0, 0, false
	return id, gen
}

// Texture is a context-bound texture. It registers with its device when
// created and unregisters when destroyed.
type Texture struct {
	*lifecycle.Base[TextureParams]
	dev *Device
	nat *native
}

// NewTexture creates a texture registered with d. On allocation failure
// the texture is destroyed and the creation error returned.
func (d *Device) NewTexture(name string, p TextureParams) (*Texture, error) {
	t := &Texture{dev: d, nat: &native{}}
	t.Base = lifecycle.New[TextureParams](name, textureAlloc{t}, lifecycle.WithLogger(d.logger))
	d.textures.Register(t)
	t.OnDestroy(func() { d.textures.Unregister(t) })
	runtime.AddCleanup(t, func(n *native) {
		if n.live {
			d.discard(garbage{id: n.id, gen: n.gen, texture: true})
		}
	}, t.nat)

	if err := t.Init(p); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

// ID returns the native id, valid only for Generation.
func (t *Texture) ID() TextureID {
	return TextureID(t.nat.id)
}

// Generation returns the context generation the texture was created in.
func (t *Texture) Generation() uint64 {
	return t.nat.gen
}

// Resize recreates the texture with new dimensions, keeping format and
// usage.
func (t *Texture) Resize(width, height uint32) error {
	p, _ := t.Params()
	p.Width, p.Height = width, height
	return t.Init(p)
}

type textureAlloc struct{ t *Texture }

func (a textureAlloc) Allocate(p TextureParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	ctx, err := a.t.dev.current()
	if err != nil {
		return err
	}
	id, err := ctx.CreateTexture(p)
	if err != nil {
		return err
	}
	a.t.nat.set(uint32(id), ctx.Generation())
	return nil
}

func (a textureAlloc) Release() error {
	id, gen := a.t.nat.take()
	ctx := a.t.dev.ctx
	if ctx == nil || ctx.Generation() != gen {
		return nil
	}
	return ctx.DeleteTexture(TextureID(id))
}

// Buffer is a context-bound buffer. It registers with its device when
// created and unregisters when destroyed.
type Buffer struct {
	*lifecycle.Base[BufferParams]
	dev *Device
	nat *native
}

// NewBuffer creates a buffer registered with d. On allocation failure the
// buffer is destroyed and the creation error returned.
func (d *Device) NewBuffer(name string, p BufferParams) (*Buffer, error) {
	b := &Buffer{dev: d, nat: &native{}}
	b.Base = lifecycle.New[BufferParams](name, bufferAlloc{b}, lifecycle.WithLogger(d.logger))
	d.buffers.Register(b)
	b.OnDestroy(func() { d.buffers.Unregister(b) })
	runtime.AddCleanup(b, func(n *native) {
		if n.live {
			d.discard(garbage{id: n.id, gen: n.gen})
		}
	}, b.nat)

	if err := b.Init(p); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

// ID returns the native id, valid only for Generation.
func (b *Buffer) ID() BufferID {
	return BufferID(b.nat.id)
}

// Generation returns the context generation the buffer was created in.
func (b *Buffer) Generation() uint64 {
	return b.nat.gen
}

type bufferAlloc struct{ b *Buffer }

func (a bufferAlloc) Allocate(p BufferParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	ctx, err := a.b.dev.current()
	if err != nil {
		return err
	}
	id, err := ctx.CreateBuffer(p)
	if err != nil {
		return err
	}
	a.b.nat.set(uint32(id), ctx.Generation())
	return nil
}

func (a bufferAlloc) Release() error {
	id, gen := a.b.nat.take()
	ctx := a.b.dev.ctx
	if ctx == nil || ctx.Generation() != gen {
		return nil
	}
	return ctx.DeleteBuffer(BufferID(id))
}

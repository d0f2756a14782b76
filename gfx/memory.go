package gfx

import (
	"fmt"
	"math/bits"
	"sync/atomic"

	"github.com/wippyai/wasm-stage/errors"
)

var generations atomic.Uint64

// MemoryContext is a Context without a GPU behind it. It tracks objects
// and their byte footprint, which is all the headless and terminal
// backends need.
type MemoryContext struct {
	textures   map[TextureID]TextureParams
	buffers    map[BufferID]BufferParams
	generation uint64
	nextID     uint32
	budget     uint64
	used       uint64
	lost       bool
}

// NewMemoryContext creates a context with a fresh generation. A zero
// budget means unlimited.
func NewMemoryContext(budget uint64) *MemoryContext {
	return &MemoryContext{
		textures:   make(map[TextureID]TextureParams),
		buffers:    make(map[BufferID]BufferParams),
		generation: generations.Add(1),
		budget:     budget,
	}
}

func (m *MemoryContext) Generation() uint64 {
	return m.generation
}

// Lose marks the context as lost. Every later call fails until the owner
// creates a new context.
func (m *MemoryContext) Lose() {
	m.lost = true
	clear(m.textures)
	clear(m.buffers)
	m.used = 0
}

// Lost reports whether Lose was called.
func (m *MemoryContext) Lost() bool {
	return m.lost
}

func (m *MemoryContext) CreateTexture(p TextureParams) (TextureID, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}
	size, err := textureBytes(p)
	if err != nil {
		return 0, err
	}
	if err := m.reserve(size); err != nil {
		return 0, err
	}
	m.nextID++
	id := TextureID(m.nextID)
	m.textures[id] = p
	return id, nil
}

func (m *MemoryContext) DeleteTexture(id TextureID) error {
	if err := m.check(); err != nil {
		return err
	}
	p, ok := m.textures[id]
	if !ok {
		return errors.NotFound(errors.PhaseDeInit, "texture", fmt.Sprint(id))
	}
	delete(m.textures, id)
	size, _ := textureBytes(p)
	m.used -= size
	return nil
}

func (m *MemoryContext) CreateBuffer(p BufferParams) (BufferID, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if err := m.reserve(p.Size); err != nil {
		return 0, err
	}
	m.nextID++
	id := BufferID(m.nextID)
	m.buffers[id] = p
	return id, nil
}

func (m *MemoryContext) DeleteBuffer(id BufferID) error {
	if err := m.check(); err != nil {
		return err
	}
	p, ok := m.buffers[id]
	if !ok {
		return errors.NotFound(errors.PhaseDeInit, "buffer", fmt.Sprint(id))
	}
	delete(m.buffers, id)
	m.used -= p.Size
	return nil
}

// Live returns the number of textures and buffers currently allocated.
func (m *MemoryContext) Live() (textures, buffers int) {
	return len(m.textures), len(m.buffers)
}

// Used returns the allocated byte footprint.
func (m *MemoryContext) Used() uint64 {
	return m.used
}

func (m *MemoryContext) check() error {
	if m.lost {
		return ErrContextLost
	}
	return nil
}

// textureBytes returns the RGBA footprint of a texture.
func textureBytes(p TextureParams) (uint64, error) {
	hi, lo := bits.Mul64(uint64(p.Width)*uint64(p.Height), 4)
	if hi != 0 {
		return 0, errors.New(errors.PhaseInit, errors.KindCreation).
			Subject("memory context").
			Detail("texture %dx%d is too large", p.Width, p.Height).
			Build()
	}
	return lo, nil
}

func (m *MemoryContext) reserve(n uint64) error {
	total, carry := bits.Add64(m.used, n, 0)
	if carry != 0 || (m.budget > 0 && total > m.budget) {
		return errors.New(errors.PhaseInit, errors.KindCreation).
			Subject("memory context").
			Detail("out of memory: %d bytes requested, %d of %d in use", n, m.used, m.budget).
			Build()
	}
	m.used = total
	return nil
}

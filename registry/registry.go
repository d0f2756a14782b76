package registry

import (
	"weak"

	"github.com/wippyai/wasm-stage/lifecycle"
)

// Registry is a non-owning, insertion-ordered set of live objects of one
// kind. Entries are weak: an object collected without unregistering simply
// drops out of the set.
//
// There is no internal locking. Only the goroutine owning the graphics
// context may touch a registry.
type Registry[T any, PT interface {
	*T
	lifecycle.Object
}] struct {
	name    string
	entries []weak.Pointer[T]
}

// New creates an empty registry. The pointer type is inferred:
//
//	textures := registry.New[gfx.Texture]("textures")
func New[T any, PT interface {
	*T
	lifecycle.Object
}](name string) *Registry[T, PT] {
	return &Registry[T, PT]{name: name}
}

// Name returns the registry name.
func (r *Registry[T, PT]) Name() string {
	return r.name
}

// Register appends obj. Registering an object twice keeps the first position.
func (r *Registry[T, PT]) Register(obj PT) {
	if obj == nil {
		return
	}
	wp := weak.Make((*T)(obj))
	for _, e := range r.entries {
		if e == wp {
			return
		}
	}
	r.entries = append(r.entries, wp)
}

// Unregister removes obj. Unknown and nil objects are ignored.
func (r *Registry[T, PT]) Unregister(obj PT) {
	if obj == nil {
		return
	}
	wp := weak.Make((*T)(obj))
	for i, e := range r.entries {
		if e == wp {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// ForEach calls fn for every live object in registration order.
func (r *Registry[T, PT]) ForEach(fn func(PT)) {
	for _, obj := range r.live() {
		fn(obj)
	}
}

// ForEachReverse calls fn for every live object in reverse registration
// order, so dependents created later are visited first.
func (r *Registry[T, PT]) ForEachReverse(fn func(PT)) {
	objs := r.live()
	for i := len(objs) - 1; i >= 0; i-- {
		fn(objs[i])
	}
}

// Count returns the number of live objects.
func (r *Registry[T, PT]) Count() int {
	return len(r.live())
}

// DeInitAll calls DeInit in reverse registration order and returns how many
// objects actually released something.
func (r *Registry[T, PT]) DeInitAll() int {
	n := 0
	r.ForEachReverse(func(obj PT) {
		if obj.DeInit() {
			n++
		}
	})
	return n
}

// ReInitAll calls ReInit in registration order. Every object is visited;
// the returned slice holds the failures in visit order.
func (r *Registry[T, PT]) ReInitAll() []error {
	var errs []error
	r.ForEach(func(obj PT) {
		if err := obj.ReInit(); err != nil {
			errs = append(errs, err)
		}
	})
	return errs
}

// live resolves the weak entries, compacting out collected ones. The
// returned slice is a snapshot, so fn may unregister during iteration.
func (r *Registry[T, PT]) live() []PT {
	objs := make([]PT, 0, len(r.entries))
	kept := r.entries[:0]
	for _, e := range r.entries {
		if p := e.Value(); p != nil {
			kept = append(kept, e)
			objs = append(objs, PT(p))
		}
	}
	clear(r.entries[len(kept):])
	r.entries = kept
	return objs
}

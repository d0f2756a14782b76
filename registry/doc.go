// Package registry tracks live context-bound objects for bulk lifecycle passes.
//
// A Registry holds weak, non-owning references in registration order. Objects
// register themselves when constructed and unregister when destroyed:
//
//	textures := registry.New[gfx.Texture]("textures")
//	textures.Register(tex)
//	defer textures.Unregister(tex)
//
// # Context Loss
//
// A Group orders registries of different kinds. When the native context is
// about to be destroyed:
//
//	group.DeInitAll()        // reverse order: dependents first
//	ctx, err := recreate()
//	err = group.ReInitAll()  // forward order: dependencies first
//
// Registries and groups are not safe for concurrent use. They belong to the
// goroutine that owns the graphics context.
package registry

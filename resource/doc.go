// Package resource maps script-visible integer handles to native records.
//
// A script never holds a native object directly. It holds a Handle, and the
// host resolves it through a Table:
//
//	table := resource.NewTable(resource.WithLogger(logger))
//	defer table.Close()
//
//	h, _ := table.Insert(TextureType, tex, func(v any) { v.(*gfx.Texture).Destroy() })
//
//	tex, err := resource.As[*gfx.Texture](table, h, TextureType)
//
//	_ = table.Release(h) // runs the finalizer
//
// # Finalization
//
// Every record is finalized exactly once: on Release, or on Close for
// whatever the script never released. Close finalizes newest first, so a
// record inserted after another (and possibly depending on it) goes away
// before it. Values implementing Finalizable need no explicit Finalizer.
//
// # Observers
//
// Observers see EventCreated and EventFinalized for every record:
//
//	cancel := table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    logger.Debug("record", zap.Stringer("event", e.Type), zap.Uint32("handle", uint32(e.Handle)))
//	}))
//	defer cancel()
package resource

// Package gfx holds the objects bound to the native graphics context.
//
// Every Texture and Buffer registers with its Device when created. When
// the window backend loses the context (a fullscreen toggle, a display
// mode change), the device runs the context-loss protocol over them:
//
//	err := dev.ContextLost(func() (gfx.Context, error) {
//	    return backend.Recreate(mode)
//	})
//
// Objects release their native side newest first, the context is rebuilt,
// and each object is recreated from the parameters of its last successful
// Init, oldest first. Script code keeps its handles throughout.
//
// All of this runs on the window thread.
package gfx

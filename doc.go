// Package stage couples a native window to an embedded WebAssembly script.
//
// The window is owned by one OS thread. Everything else talks to it through
// a command queue and receives its events on a channel, so a guest module
// runs on its own goroutine and never touches native state directly.
//
// # Architecture Overview
//
//	stage/
//	├── command/     Typed command queue, dispatch loop and synchronous replies
//	├── lifecycle/   Two-phase Init/DeInit objects over an allocator
//	├── registry/    Weak registries of live objects, grouped for context loss
//	├── gfx/         Graphics context, device, textures and buffers
//	├── window/      Window thread, commands and backends (headless, termwin)
//	├── script/      wazero VM: value stack, anchored references, callback tables
//	├── resource/    Handle table for native records owned by the script
//	├── host/        The "stage" host module and the script event loop
//	├── config/      HCL configuration
//	├── errors/      Structured error types
//	└── cmd/stage/   Command line runner and interactive inspector
//
// # Quick Start
//
// Run the window on the main thread and the guest beside it:
//
//	win := window.New(termwin.New())
//
//	go func() {
//	    vm, _ := script.New(ctx, nil)
//	    defer vm.Close(ctx)
//
//	    h := host.New(win, vm)
//	    defer h.Close()
//	    _ = h.Instantiate(ctx)
//	    _ = vm.Load(ctx, wasmBytes)
//	    _ = h.Run(ctx)
//	}()
//
//	if err := win.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Context Loss
//
// Changing the display mode rebuilds the graphics context. Every texture and
// buffer is released against the old context and re-created against the new
// one, in registration order, before the next command runs. Objects keep
// their identity across the rebuild; only their native ids change.
//
// # Thread Safety
//
// Window producer methods are safe from any goroutine. A script.VM and a
// host.Host belong to the goroutine that runs the guest. gfx objects may only
// be touched on the window thread, which Window.Do provides.
package stage

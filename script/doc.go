// Package script embeds the wazero runtime and anchors script values across
// host calls.
//
// # VM
//
// A VM owns one wazero runtime and one guest module. Host code talks to the
// guest through an evaluation stack of Values, each a guest function, an
// opaque user value or nil:
//
//	vm, _ := script.New(ctx, &script.Config{MemoryLimitPages: 256})
//	defer vm.Close(ctx)
//	_ = vm.Load(ctx, wasmBytes)
//
//	vm.PushExport("on_resize")
//	vm.Push(script.Opaque(800))
//	vm.Push(script.Opaque(600))
//	_, err := vm.Call(ctx, 2)
//
// Stack positions are 1-based from the bottom, or negative from the top.
//
// # References
//
// Ref anchors a stack value in the VM's registry so it outlives the stack
// frame. A Table holds a fixed number of such references for one VM:
//
//	refs := script.NewTable(3, logger)
//	_ = refs.Init(vm, -3, -2, -1)  // capture the top three values
//	vm.Pop(3)
//
//	if refs.BoundTo(vm) {
//	    _ = refs.PushFunction(vm, 0)
//	    _, _ = vm.Call(ctx, 0)
//	}
//
// A reference is meaningful only against the VM that produced it. Check
// BoundTo first; the push helpers also refuse a mismatched or closed VM.
package script

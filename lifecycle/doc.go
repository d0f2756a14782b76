// Package lifecycle implements the Init/DeInit/ReInit/Destroy contract shared
// by every object bound to a graphics context.
//
// # States
//
//	Uninitialized --Init(p)--> Initialized
//	Initialized --DeInit()--> Uninitialized   (params kept)
//	Uninitialized --ReInit()--> Initialized   (replays params)
//	any --Destroy()--> Destroyed              (terminal)
//
// # Context Loss
//
// When the native context is destroyed and recreated, every registered object
// is DeInit'ed in reverse registration order before the context goes away and
// ReInit'ed in registration order once the new context exists. ReInit is a
// no-op for objects that never initialized successfully.
//
// # Failure Policy
//
// Init surfaces allocation failures as creation errors carrying the params.
// DeInit and Destroy never fail: release errors and panics are logged and
// swallowed so teardown is always safe.
package lifecycle

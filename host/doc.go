// Package host exposes the window to a guest module and drives the guest's
// callbacks.
//
// Guests import functions from the "stage" module:
//
//	resize(w, h i32) i32            move(x, y i32) i32
//	centre() i32                    fullscreen(on i32) i32
//	set_title(ptr, len i32) i32     clipboard_set(ptr, len i32) i32
//	clipboard_get(ptr, cap i32) i32 set_callback(slot, ptr, len i32) i32
//	texture_new(w, h i32) i32       buffer_new(size i32) i32
//	handle_drop(handle i32) i32
//
// Negative results are status codes. texture_new and buffer_new return a
// handle; the native object lives on the window thread and is destroyed
// when the guest drops the handle or the host closes.
//
// Guests export their callbacks, each taking the user value first:
//
//	on_resize(user i64, w, h i32)
//	on_focus(user i64, focused i32)
//	on_quit(user i64) i32   // return 0 to keep the window open
package host

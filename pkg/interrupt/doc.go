// Package interrupt provides the cancellation hooks a controller installs while an image
// load is active: OS signals, a key combination on a raw terminal, or both.
//
// Every hook implements ports.CancelHook. Install returns a function that puts back
// whatever was in place before, so nested installs unwind in order.
package interrupt

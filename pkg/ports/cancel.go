package ports

// RestoreFunc undoes an installed CancelHook.
type RestoreFunc func()

// CancelHook is an external trigger able to request abort of the active load
// (an OS signal, a key combination on the terminal...).
type CancelHook interface {
	// Install starts watching the trigger and calls abort when it fires.
	// The returned RestoreFunc MUST be called to reinstate whatever was there before.
	Install(abort func()) RestoreFunc
}

// CancelHookFunc adapts a function to CancelHook.
type CancelHookFunc func(abort func()) RestoreFunc

// Install calls f.
func (f CancelHookFunc) Install(abort func()) RestoreFunc {
	return f(abort)
}

// NopCancelHook installs nothing.
var NopCancelHook = CancelHookFunc(func(func()) RestoreFunc { return func() {} })

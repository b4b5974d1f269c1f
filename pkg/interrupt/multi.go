package interrupt

import "github.com/aretw0/loadkit/pkg/ports"

// Multi installs several hooks at once. Restore runs in reverse install order.
func Multi(hooks ...ports.CancelHook) ports.CancelHook {
	return ports.CancelHookFunc(func(abort func()) ports.RestoreFunc {
		restores := make([]ports.RestoreFunc, 0, len(hooks))
		for _, h := range hooks {
			if h != nil {
				restores = append(restores, h.Install(abort))
			}
		}
		return func() {
			for i := len(restores) - 1; i >= 0; i-- {
				restores[i]()
			}
		}
	})
}

// Package middleware decorates a ports.JournalStore.
package middleware

import "github.com/aretw0/loadkit/pkg/ports"

// Middleware allows wrapping a JournalStore to add behavior.
type Middleware func(ports.JournalStore) ports.JournalStore

// Chain applies mws so that the first one is the outermost.
func Chain(store ports.JournalStore, mws ...Middleware) ports.JournalStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

/*
Package ports defines the driven ports (interfaces) of the load controller.

These interfaces decouple the orchestration logic from the concrete loader backends, decoders,
cancellation triggers and journal storage.

# Key Interfaces

  - Backend: reads and decodes a list of items asynchronously, reporting through Hooks.
  - Decoder: turns the bytes of one item into domain.Data.
  - CancelHook: an external trigger (signal, key press) that requests abort of the active load.
  - JournalStore: persists a record of every finished image load.
*/
package ports

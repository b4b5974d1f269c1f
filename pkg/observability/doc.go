/*
Package observability turns relay events into Prometheus metrics.

Metrics subscribes to every event type of a Controller (or anything else exposing
AddEventListener) and maintains:

  - loadkit_events_total{type}
  - loadkit_loads_total{outcome}
  - loadkit_load_duration_seconds{outcome}
  - loadkit_slices_total and loadkit_slice_bytes_total
  - loadkit_active_loads
*/
package observability

/*
Package domain contains the core value types shared by the load controller, its backends and adapters.

It is kept free of I/O so that backends, the controller and the transport adapters can agree on the
same vocabulary without importing each other.

# Key Entities

  - Item: one entry of a load request (a file path, a URL or a named in-memory buffer).
  - Data: what a backend reports for every decoded item, including the SliceInfo relayed to subscribers.
  - Event: the normalized notifications fired on the relay (load-start ... load-abort).
  - LoadRecord: the journal entry kept for every finished image load.
*/
package domain

// Package memory provides the in-memory backend for named buffers and an in-memory journal store.
package memory

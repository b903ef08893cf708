// Package lifecycle reacts to shop lifecycle events.
//
// Created, Updated and Deleted events flush the shared cache namespace
// through a gate.Store, which keeps the reserved gate record alive, and then
// record the action. Updated and Deleted run their domain side effects
// before the flush. Restored only records the action and Creating assigns a
// fresh ID.
//
// A failed flush is handled according to FlushFailurePolicy. The restore
// write inside gate.Store.FlushAndRestore never fails an event.
package lifecycle

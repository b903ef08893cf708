// Package gate guards restricted operations behind a single reserved record
// and keeps that record alive across total cache flushes.
//
// The record lives under ReservedKey. Two Store implementations exist:
//
//   - CacheStore keeps the record inside the shared cache namespace. Every
//     flush removes it, so FlushAndRestore reads it first and writes it back
//     after the flush. The write is best effort.
//   - FlagStore keeps the record in a FlagBackend outside the namespace.
//     Flushing never touches it and no restore step is needed.
//
// FeatureGate permits an operation only when the record is a map whose
// "active" field is loosely equal to 1 (1, 1.0, true, "1", " 1", "1e0").
// Anything else, including a missing record or a nested value, denies.
//
// Read never fails: backend errors are logged and reported as absence.
// FlushNamespace failures are returned as go-errors values with
// TextCodeFlushFailed; the caller decides whether they abort anything.
package gate

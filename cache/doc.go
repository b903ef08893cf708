// Package cache defines the cache contracts shared by the gate and the cached
// tag repository.
//
// # Overview
//
// Two views over the same backend are exported:
//
//   - CacheService: read-through caching (GetOrFetch, Delete) used by
//     repository decorators.
//   - Namespace: raw Get/Set/Delete/Flush access to the application-wide key
//     space. Flush is total; it clears entries written by every component.
//
// Store combines both. NewStore builds the backend selected in Config:
// an in-process sturdyc client (default) or a Redis logical database.
//
// # Keys
//
// NewDefaultKeySerializer builds keys of the form
//
//	<prefix>::<method>::<arg>::<arg>
//
// Maps are serialized with sorted entries. Argument segments that would make
// the key longer than DefaultMaxKeyLength collapse to an xxhash digest, while
// the method segment is kept so prefix invalidation still works.
//
// # Values
//
// The sturdyc backend keeps Go values as-is. The Redis backend encodes values
// with msgpack; GetOrFetch decodes hits into the fetch function's result type
// and Get decodes into generic maps and scalars.
package cache

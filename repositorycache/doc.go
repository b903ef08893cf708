// Package repositorycache provides a caching decorator for go-repository-bun
// repositories.
//
// The decorator serves GetByID, List and Count through a cache.CacheService
// and passes writes through to the base repository. After a successful write
// it deletes the cached reads the write may have changed:
//
//   - Create drops listings and counts
//   - Update and Delete also drop the record's GetByID entries
//   - DeleteWhere and Invalidate drop everything in the repository's scope
//
// Keys are "<scope>.<method>" followed by the serialized arguments, where the
// scope defaults to the snake_cased record type ("tag" for *model.Tag). Every
// key handed to the cache is tracked in a registry so prefix invalidation
// does not need backend support for key scans.
//
// Criteria are functions and have no stable identity. Reads with criteria
// bypass the cache unless the context carries tags that describe them:
//
//	ctx = repositorycache.WithCacheTags(ctx, "page=2", "per_page=15")
//	tags, total, err := cached.List(ctx, paginate(2, 15))
//
// Keys tracked here may also disappear when the whole namespace is flushed;
// deleting a missing key is harmless.
package repositorycache

// Package store defines interfaces for persistence dependencies (products,
// scan history, favorites, user progress, waste categories). Implementations
// live in the storage packages; this package must not import database drivers
// or concrete clients.
package store

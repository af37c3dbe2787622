// Package memory provides in-memory repositories and a blob store for
// development, offline use and tests. Every type is safe for concurrent use.
package memory

// Package domain holds the BinBuddy data model shared by the catalog client,
// the stores, and the HTTP API.
package domain

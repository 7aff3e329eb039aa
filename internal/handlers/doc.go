// Package handlers provides HTTP request handlers for the card archive API.
//
// It includes handlers for:
//   - Card search with tag, text, and metadata filters
//   - Card ingest, lookup, and deletion
//   - Favorites and topic listings
//   - Tag alias inspection
//   - Health checks, stats, and version info
package handlers

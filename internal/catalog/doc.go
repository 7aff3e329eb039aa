// Package catalog provides SQLite storage for the card archive.
//
// It handles storage and retrieval of:
//   - Card records with their denormalized comma-joined topic field
//   - The normalized (card, topic) index used for tag filtering
//   - Filtered, sorted, paginated card searches
//   - Favorites and per-language aggregation
//
// The database uses WAL mode for improved concurrent read performance
// and includes automatic schema initialization. The topic index is kept
// consistent with card topic fields on every write and can be checked
// and rebuilt in staged batches when an external bulk import leaves it
// stale.
package catalog

// Package ingest loads training data and product catalogs from CSV files
// into storage.
//
// The Pipeline type manages the import workflow:
//   - Parsing CSV files, with repair of mojibake left by bad exports
//   - Skipping blank rows and, optionally, duplicate (query, code) pairs
//   - Bulk-inserting examples and replacing the catalog atomically
//
// Directory imports parse files concurrently using a worker pool and insert
// them in deterministic file-name order.
package ingest

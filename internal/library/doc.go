// Package library persists tracked titles and their download state in SQLite.
//
// The Store manages database connections, schema initialization, title and
// source bookkeeping, per-chapter download records, and the fallback windows
// the decision engine consults. Download records are permanent: once a chapter
// is recorded for a title it is never fetched again, regardless of which
// source served it.
//
// Treat this package as the single source of truth for library semantics;
// when you add new tables or columns, update schema.sql and bump
// schemaVersion.
package library

// Package store implements the durable storage engine for the task graph.
//
// The store is a single SQLite database file. Writers are serialized by an
// exclusive lock taken at transaction begin (BEGIN IMMEDIATE) with a
// bounded wait; readers observe the last committed snapshot via WAL and
// never block. The schema version is stamped in PRAGMA user_version and
// checked on open: a mismatch is an error, never a silent migration.
//
// The store owns bytes, not meaning. Interpretation of plan, task, edge,
// document and history records lives in the graph, document and history
// packages.
package store

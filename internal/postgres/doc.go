// Package postgres implements the Postgres-backed counter store.
//
// One row per counter name in the counters table, upserted on every write.
// The schema is created on connect; there is no migration history to manage.
package postgres

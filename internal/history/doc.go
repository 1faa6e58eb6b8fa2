// Package history journals task executions in SQLite so operators can ask
// what a task did and when, after the fact.
//
// The Store manages the database connection, schema initialization, and the
// run log queries behind `vigil history`. History is an observer: the
// supervisor records each completed or skipped run, and recording failures
// never influence scheduling or state persistence. Schema changes bump
// schemaVersion in store.go; users delete the database to adopt a new
// schema.
package history

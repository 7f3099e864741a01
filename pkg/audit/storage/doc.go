// Package storage provides execution-context store implementations: an
// in-memory store for tests and ephemeral deployments, and a SQLite store
// for single-instance durable deployments.
package storage

// Package storage provides the delivery ledger used by the notifier.
//
// The ledger is a plain-text file with one activity identity per line
// ("<work_id> <key>"), oldest first. It is append-only except for the
// trim step, which atomically rewrites the file to keep only the newest
// MaxRecords lines.
//
// The ledger is not safe for concurrent processes: two overlapping runs can
// both miss an identity before either records it. Daemon mode serialises
// runs inside one process; cron users must avoid overlapping invocations.
package storage

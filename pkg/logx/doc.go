// Package logx is watchpost's structured logging layer on top of zerolog.
//
// A Logger is a small value: copy it, derive children with With, and pass
// it down. Loggers obtained from a Service follow Service.Apply, so a config
// reload changes level and sinks for everyone without re-plumbing.
//
// Human-readable lines go to stderr; the optional file sink gets JSON. Stdout
// is never written so dry runs can print notification text there.
package logx

// Package scheduler runs the poll job repeatedly in daemon mode.
//
// Schedules are either cron expressions (robfig/cron syntax, seconds field
// optional) or fixed intervals. Runs never overlap: a tick that fires while
// the previous run is still in progress is dropped, not queued.
package scheduler

// Package notifier runs one delivery pass over the user's recent activities.
//
// A pass fetches the newest batch, decodes and orders it oldest-first,
// renders each activity, and then, strictly in order, skips suppressed and
// already recorded activities, delivers the rest and records each one in the
// ledger right after its delivery succeeds.
//
// # Failure
//
// Any error ends the pass. A delivery failure leaves that activity (and all
// later ones) unrecorded, so they are retried on the next pass as long as
// they are still part of the fetched batch. Earlier deliveries of the same
// pass stay recorded.
//
// # Pacing
//
// Real deliveries are spaced by a token bucket with one token per
// PostInterval. Dry runs print to a local writer and are not paced.
package notifier

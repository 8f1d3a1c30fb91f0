// Package reward runs reaction currency events: participants who react to an
// event's announcement with the currency sign are filtered, deduplicated and
// charged against a shared pot, then credited in batches by a periodic
// settler until the event stops.
package reward

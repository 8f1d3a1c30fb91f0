// Package app provides the application service layer.
//
// Orchestrates use cases: starting and stopping reaction events, one per scope
// across all instances, and guarding the ledger with a circuit breaker.
// Sits between HTTP handlers and the reward engine. Depends on domain interfaces, not concrete implementations.
package app

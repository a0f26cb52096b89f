// Package health runs readiness checks for the command-line tool's doctor
// command: the cache directory, every cache shelf in it, and the remote API.
//
// Checks implement Checker and are combined by an Aggregator, which runs
// them in parallel under one timeout and reports results in registration
// order.
package health

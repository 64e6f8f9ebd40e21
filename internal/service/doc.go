// Package service implements the product catalog's business operations.
//
// The service is the only layer that decides whether a mutation is valid and
// the only layer that emits domain events. Events are emitted after the
// mutation commits; a failed emission is logged and counted but never
// reported to the caller.
package service

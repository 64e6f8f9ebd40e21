// Package events provides the domain events announced after product mutations
// and the emitters that deliver them.
//
// The primary components are:
// - ProductEvent: an immutable fact about a committed product mutation
// - EventEmitter: interface for components that can emit events
// - InMemoryEventEmitter: fans events out to in-process handlers
// - BrokerEmitter: publishes events to a message broker with one retry
// - AsyncEmitter: hands events to another emitter on a single background worker
package events

// Package lock serializes reconciliation cycles.
//
// Every load, merge and save sequence runs while holding a Locker so that two
// cycles never interleave writes to the same store. Mutex covers a single
// process; Redis covers several processes sharing one store.
package lock

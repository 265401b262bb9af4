// Package reconcile runs reconciliation cycles against a storage backend.
//
// An Engine loads the stored record set, merges a scraped batch into it,
// saves the result and sweeps expired records, all while holding a cycle
// lock. Persistence failures are reported as outcomes and logged; they never
// abort the process.
package reconcile

// Package memory stores agent exchanges for later recall. The Store interface
// is what agents depend on; InMemoryStore is a process-local implementation
// suitable for tests and single-process deployments.
//
// Entries carry a relevance score that starts at 1.0 and decays with age when
// Consolidate is called (exponential decay, one-week time constant).
package memory

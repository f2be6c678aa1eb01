// Package user implements the session cache: login against the upstream
// RentState services with local TTL caching and identity reconciliation,
// property-list caching, the device/property linking protocol, and the
// owner-facing device projections.
//
// The Cache owns the only in-memory working copy of user records and writes
// every mutated record back to the Store synchronously before the operation
// returns. All public methods are safe for concurrent use; every mutation is
// serialized behind a single mutex, which also makes the three-record linking
// sequence atomic with respect to other operations in this process.
package user

// Package device implements the IoT device registry: registration and
// authentication of devices, message ingestion, link/unlink mutations, and the
// liveness monitor that detects devices which have gone silent.
//
// The Registry owns the only in-memory working copy of device records and
// writes every mutated record back to the Store synchronously before the
// operation returns. All public methods are safe for concurrent use.
package device

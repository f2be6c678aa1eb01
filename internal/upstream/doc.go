// Package upstream implements the REST clients for the three independent
// RentState production services: authentication, user profiles and property
// listings. All calls carry a bounded timeout; failures are classified into
// the sentinel errors in errors.go so the session cache can map them to the
// external-server error taxonomy without inspecting transport details.
package upstream

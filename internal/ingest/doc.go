// Package ingest bridges device messages arriving over MQTT into the
// device registry.
//
// Devices that cannot hold an HTTP session publish their messages to
// rentstate/iot/{deviceId}/message instead. The bridge subscribes to the
// whole branch, authenticates each payload and feeds it through the same
// registry pipeline as the HTTP ingest endpoint, so liveness tracking and
// notifications behave identically regardless of transport.
package ingest

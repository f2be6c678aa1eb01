package api

import (
	"net/http"

	"github.com/antarticdonkeys/rentstate-hub/internal/device"
)

// deviceInitRequest is the body devices send on first contact and on every
// reconnect to fetch their configuration.
type deviceInitRequest struct {
	ID           string `json:"id"`
	Password     string `json:"password"`
	DeviceTypeID int    `json:"deviceTypeId"`
}

// handleDeviceInit registers the device on first contact and returns its
// configuration view.
func (s *Server) handleDeviceInit(w http.ResponseWriter, r *http.Request) {
	var req deviceInitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, rerr := s.registry.Register(r.Context(), req.ID, req.Password, req.DeviceTypeID)
	if rerr != nil {
		writeResultError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// deviceMessageRequest is the body devices send for every message, including
// plain report heartbeats.
type deviceMessageRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// handleDeviceMessage ingests one device message. A message posted without a
// severity is treated as info tier, not as a bare heartbeat.
func (s *Server) handleDeviceMessage(w http.ResponseWriter, r *http.Request) {
	var req deviceMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Severity == "" {
		req.Severity = string(device.SeverityInfo)
	}

	if rerr := s.registry.IngestMessage(r.Context(), req.ID, req.Password, req.Message, req.Severity); rerr != nil {
		writeResultError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Message received"})
}

// devicePasswordRequest is the body for rotating a device's shared secret.
type devicePasswordRequest struct {
	ID          string `json:"id"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// handleDevicePassword rotates the device password after validating the
// current one.
func (s *Server) handleDevicePassword(w http.ResponseWriter, r *http.Request) {
	var req devicePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.NewPassword == "" {
		writeBadRequest(w, "newPassword is required")
		return
	}

	if rerr := s.registry.Authenticate(req.ID, req.Password); rerr != nil {
		writeResultError(w, rerr)
		return
	}
	if rerr := s.registry.ChangePassword(r.Context(), req.ID, req.NewPassword); rerr != nil {
		writeResultError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// handleIoTPing confirms the device API is reachable.
func (s *Server) handleIoTPing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "IoT API working"})
}

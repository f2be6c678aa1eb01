package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// loginRequest is the mobile login body.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the session payload returned on successful login.
// The cached password never leaves the server.
type loginResponse struct {
	UserID   int64     `json:"userId"`
	Username string    `json:"username"`
	Token    string    `json:"token"`
	Expires  time.Time `json:"expires"`
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Devices  []string  `json:"devices"`
}

// handleLogin authenticates a user against the cache (and upstream when the
// cached session is stale).
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, rerr := s.users.Login(r.Context(), req.Username, req.Password)
	if rerr != nil {
		writeResultError(w, rerr)
		return
	}

	devices := rec.Devices
	if devices == nil {
		devices = []string{}
	}
	writeJSON(w, http.StatusOK, loginResponse{
		UserID:   rec.UserID,
		Username: rec.Username,
		Token:    rec.Token,
		Expires:  rec.Expires,
		Name:     rec.Name,
		Email:    rec.Email,
		Phone:    rec.Phone,
		Devices:  devices,
	})
}

// tokenRequest is the body of every authenticated mobile operation.
type tokenRequest struct {
	Token string `json:"token"`
}

// userIDParam parses the {userId} path parameter.
func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "userId")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		writeBadRequest(w, "userId must be a positive integer")
		return 0, false
	}
	return userID, true
}

// handleListProperties returns the user's property list, refreshing the
// cached copy from upstream when stale.
func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	properties, rerr := s.users.ListProperties(r.Context(), userID, req.Token)
	if rerr != nil {
		writeResultError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, properties)
}

// linkRequest carries the three-way linking parameters: session token,
// device credentials and target property.
type linkRequest struct {
	Token      string `json:"token"`
	DeviceID   string `json:"deviceId"`
	Password   string `json:"password"`
	PropertyID int64  `json:"propertyId"`
}

// handleLinkDevice attaches a device to one of the user's properties.
func (s *Server) handleLinkDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req linkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, rerr := s.users.LinkDevice(r.Context(), userID, req.Token, req.DeviceID, req.Password, req.PropertyID)
	if rerr != nil {
		writeResultError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleUnlinkDevice detaches a device from the user's property.
func (s *Server) handleUnlinkDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req linkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, rerr := s.users.UnlinkDevice(r.Context(), userID, req.Token, req.DeviceID, req.Password, req.PropertyID)
	if rerr != nil {
		writeResultError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleDevicesList returns the filtered views of all devices linked to the
// user.
func (s *Server) handleDevicesList(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	views, rerr := s.users.DevicesList(userID, req.Token)
	if rerr != nil {
		writeResultError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleDeviceFullData returns the full record of one of the user's devices
// joined with its catalog metadata.
func (s *Server) handleDeviceFullData(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	deviceID := chi.URLParam(r, "deviceId")
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	full, rerr := s.users.DeviceFullData(userID, req.Token, deviceID)
	if rerr != nil {
		writeResultError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, full)
}

// handleMobilePing confirms the mobile API is reachable.
func (s *Server) handleMobilePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "mobile API working"})
}

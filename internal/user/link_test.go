package user

import (
	"context"
	"testing"
	"time"

	"github.com/antarticdonkeys/rentstate-hub/internal/device"
	"github.com/antarticdonkeys/rentstate-hub/internal/result"
)

func TestLinkDevice(t *testing.T) {
	env := newCacheEnv(t, time.Hour)
	sess := env.login(t)
	ctx := context.Background()

	env.registerDevice(t, "dev-1", "pw")

	view, rerr := env.cache.LinkDevice(ctx, 7, sess.Token, "dev-1", "pw", 11)
	if rerr != nil {
		t.Fatalf("LinkDevice() error = %v", rerr)
	}
	if view.UserID != 7 || view.PropertyID != 11 {
		t.Errorf("view = %+v", view)
	}

	// Device record carries the link.
	if got := env.devStore.records["dev-1"]; got.UserID != 7 || got.PropertyID != 11 {
		t.Errorf("device record = user %d property %d", got.UserID, got.PropertyID)
	}

	// User record mirrors the link on both the device list and the
	// matched property view.
	rec := env.store.records[7]
	if len(rec.Devices) != 1 || rec.Devices[0] != "dev-1" {
		t.Errorf("user devices = %v", rec.Devices)
	}
	prop := rec.findProperty(11)
	if prop == nil {
		t.Fatalf("property 11 not cached")
	}
	if prop.DeviceID == nil || *prop.DeviceID != "dev-1" {
		t.Errorf("property deviceId = %v", prop.DeviceID)
	}
	if prop.DevicePassword != "pw" {
		t.Errorf("property devicePassword = %q", prop.DevicePassword)
	}
}

func TestLinkDeviceAlreadyLinked(t *testing.T) {
	env := newCacheEnv(t, time.Hour)
	sess := env.login(t)
	ctx := context.Background()

	env.registerDevice(t, "dev-1", "pw")
	if _, rerr := env.cache.LinkDevice(ctx, 7, sess.Token, "dev-1", "pw", 11); rerr != nil {
		t.Fatalf("LinkDevice() error = %v", rerr)
	}

	_, rerr := env.cache.LinkDevice(ctx, 7, sess.Token, "dev-1", "pw", 12)
	wantCode(t, rerr, result.CodeDeviceAlreadyLinked)
	if rerr.Status != 409 {
		t.Errorf("status = %d, want 409", rerr.Status)
	}
}

func TestLinkDeviceValidation(t *testing.T) {
	env := newCacheEnv(t, time.Hour)
	sess := env.login(t)
	ctx := context.Background()

	env.registerDevice(t, "dev-1", "pw")

	tests := []struct {
		name       string
		userID     int64
		token      string
		deviceID   string
		password   string
		propertyID int64
		code       result.Code
	}{
		{"bad token", 7, "forged", "dev-1", "pw", 11, result.CodeInvalidToken},
		{"unknown user", 99, sess.Token, "dev-1", "pw", 11, result.CodeInvalidUserID},
		{"unknown device", 7, sess.Token, "ghost", "pw", 11, result.CodeDeviceNotFound},
		{"wrong device password", 7, sess.Token, "dev-1", "bad", 11, result.CodeInvalidPassword},
		{"zero property", 7, sess.Token, "dev-1", "pw", 0, result.CodeRequestIncomplete},
		{"property not owned", 7, sess.Token, "dev-1", "pw", 99, result.CodeInvalidPropertyID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rerr := env.cache.LinkDevice(ctx, tt.userID, tt.token, tt.deviceID, tt.password, tt.propertyID)
			wantCode(t, rerr, tt.code)
		})
	}

	// None of the failures may have linked anything.
	if got := env.devStore.records["dev-1"].UserID; got != device.NoUserID {
		t.Errorf("device linked despite failures, user %d", got)
	}
}

func TestUnlinkDeviceRoundTrip(t *testing.T) {
	env := newCacheEnv(t, time.Hour)
	sess := env.login(t)
	ctx := context.Background()

	env.registerDevice(t, "dev-1", "pw")
	if _, rerr := env.cache.LinkDevice(ctx, 7, sess.Token, "dev-1", "pw", 11); rerr != nil {
		t.Fatalf("LinkDevice() error = %v", rerr)
	}

	view, rerr := env.cache.UnlinkDevice(ctx, 7, sess.Token, "dev-1", "pw", 11)
	if rerr != nil {
		t.Fatalf("UnlinkDevice() error = %v", rerr)
	}
	if view.UserID != device.NoUserID || view.PropertyID != device.NoPropertyID {
		t.Errorf("view after unlink = %+v", view)
	}

	// Link then unlink restores the unlinked shape everywhere.
	rec := env.store.records[7]
	if len(rec.Devices) != 0 {
		t.Errorf("user devices = %v, want empty", rec.Devices)
	}
	prop := rec.findProperty(11)
	if prop == nil {
		t.Fatalf("property 11 missing")
	}
	if prop.DeviceID != nil || prop.DevicePassword != "" || prop.Enabled {
		t.Errorf("property not restored: %+v", prop)
	}
	if got := env.devStore.records["dev-1"]; got.UserID != device.NoUserID || got.PropertyID != device.NoPropertyID {
		t.Errorf("device record still linked: %+v", got)
	}

	// The same device can be linked again afterwards.
	if _, rerr := env.cache.LinkDevice(ctx, 7, sess.Token, "dev-1", "pw", 12); rerr != nil {
		t.Errorf("re-link after unlink failed: %v", rerr)
	}
}

func TestUnlinkDeviceValidation(t *testing.T) {
	env := newCacheEnv(t, time.Hour)
	sess := env.login(t)
	ctx := context.Background()

	env.registerDevice(t, "dev-1", "pw")
	env.registerDevice(t, "dev-2", "pw")

	// No devices linked at all.
	_, rerr := env.cache.UnlinkDevice(ctx, 7, sess.Token, "dev-1", "pw", 11)
	wantCode(t, rerr, result.CodeInvalidUserID)

	if _, rerr := env.cache.LinkDevice(ctx, 7, sess.Token, "dev-1", "pw", 11); rerr != nil {
		t.Fatalf("LinkDevice() error = %v", rerr)
	}

	// Device exists but is not in this user's list.
	_, rerr = env.cache.UnlinkDevice(ctx, 7, sess.Token, "dev-2", "pw", 11)
	wantCode(t, rerr, result.CodeDeviceAlreadyLinked)

	// Property exists but holds a different device.
	_, rerr = env.cache.UnlinkDevice(ctx, 7, sess.Token, "dev-1", "pw", 12)
	wantCode(t, rerr, result.CodeDeviceAlreadyLinked)

	// Property id the user does not own.
	_, rerr = env.cache.UnlinkDevice(ctx, 7, sess.Token, "dev-1", "pw", 99)
	wantCode(t, rerr, result.CodeInvalidPropertyID)

	// Wrong device credentials are rejected before anything else.
	_, rerr = env.cache.UnlinkDevice(ctx, 7, sess.Token, "dev-1", "bad", 11)
	wantCode(t, rerr, result.CodeInvalidPassword)

	// Zero property id.
	_, rerr = env.cache.UnlinkDevice(ctx, 7, sess.Token, "dev-1", "pw", 0)
	wantCode(t, rerr, result.CodeRequestIncomplete)

	// The link must have survived every failed attempt.
	if got := env.devStore.records["dev-1"]; got.UserID != 7 || got.PropertyID != 11 {
		t.Errorf("link lost after failed unlinks: %+v", got)
	}
}

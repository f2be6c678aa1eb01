package user

import (
	"context"

	"github.com/antarticdonkeys/rentstate-hub/internal/device"
	"github.com/antarticdonkeys/rentstate-hub/internal/result"
)

// LinkDevice attaches a device to one of the user's properties.
//
// The sequence validates the session token, the device credentials, and the
// property's ownership (forcing a property refresh when the cache is stale)
// before mutating anything. On success the device record, the user's device
// list and the matched PropertyView are updated together under the cache
// mutex and both stores are persisted.
func (c *Cache) LinkDevice(ctx context.Context, userID int64, token, deviceID, devicePassword string, propertyID int64) (device.View, *result.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rerr := c.validateTokenLocked(userID, token); rerr != nil {
		return device.View{}, rerr
	}
	if rerr := c.registry.Authenticate(deviceID, devicePassword); rerr != nil {
		return device.View{}, rerr
	}
	if propertyID == 0 {
		return device.View{}, result.BadRequest("propertyId is required")
	}

	rec := c.users[userID]
	if rec.hasDevice(deviceID) {
		return device.View{}, result.Conflict(result.CodeDeviceAlreadyLinked, "Device already linked")
	}

	// Resolve the property through the cached list, refreshing from
	// upstream if expired. A property the user does not own never appears
	// here.
	properties, rerr := c.listPropertiesLocked(ctx, rec)
	if rerr != nil {
		return device.View{}, rerr
	}
	var found bool
	for i := range properties {
		if properties[i].ID == propertyID {
			found = true
			break
		}
	}
	if !found {
		return device.View{}, result.NotFound(result.CodeInvalidPropertyID, "Property is not owned by user, or doesn't exist")
	}

	view, rerr := c.registry.LinkToUser(ctx, deviceID, devicePassword, userID, propertyID)
	if rerr != nil {
		return device.View{}, rerr
	}

	rec.Devices = append(rec.Devices, deviceID)
	if prop := rec.findProperty(propertyID); prop != nil {
		id := deviceID
		prop.DeviceID = &id
		prop.DevicePassword = devicePassword
		prop.Enabled = view.Enabled
	}

	if serr := c.store.Save(ctx, rec); serr != nil {
		c.logger.Error("persisting device link failed", "user_id", userID, "error", serr)
		return device.View{}, result.Internal(result.CodeInternalError, "unable to persist user")
	}

	c.logger.Info("device linked to property",
		"user_id", userID,
		"device_id", deviceID,
		"property_id", propertyID,
	)
	return view, nil
}

// UnlinkDevice detaches a device from the user's property, restoring the
// PropertyView to its unlinked shape and removing the device from the user's
// list. The property's current DeviceID must match the device being removed.
func (c *Cache) UnlinkDevice(ctx context.Context, userID int64, token, deviceID, devicePassword string, propertyID int64) (device.View, *result.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rerr := c.registry.Authenticate(deviceID, devicePassword); rerr != nil {
		return device.View{}, rerr
	}
	if rerr := c.validateTokenLocked(userID, token); rerr != nil {
		return device.View{}, rerr
	}
	if propertyID == 0 {
		return device.View{}, result.BadRequest("propertyId is required")
	}

	rec := c.users[userID]
	if len(rec.Devices) == 0 {
		return device.View{}, result.NotFound(result.CodeInvalidUserID, "No devices linked to this user")
	}
	if !rec.hasDevice(deviceID) {
		return device.View{}, result.Conflict(result.CodeDeviceAlreadyLinked, "Device not linked to actual user")
	}

	if rec.Properties == nil || len(rec.Properties.Data) == 0 {
		return device.View{}, result.NotFound(result.CodeInvalidUserID, "No properties linked to this user")
	}
	prop := rec.findProperty(propertyID)
	if prop == nil {
		return device.View{}, result.NotFound(result.CodeInvalidPropertyID, "Property not found")
	}
	if prop.DeviceID == nil || *prop.DeviceID != deviceID {
		return device.View{}, result.Conflict(result.CodeDeviceAlreadyLinked, "Device not linked to actual property")
	}

	view, rerr := c.registry.Unlink(ctx, deviceID, devicePassword)
	if rerr != nil {
		return device.View{}, rerr
	}

	prop.DeviceID = nil
	prop.DevicePassword = ""
	prop.Enabled = false

	devices := rec.Devices[:0]
	for _, id := range rec.Devices {
		if id != deviceID {
			devices = append(devices, id)
		}
	}
	rec.Devices = devices

	if serr := c.store.Save(ctx, rec); serr != nil {
		c.logger.Error("persisting device unlink failed", "user_id", userID, "error", serr)
		return device.View{}, result.Internal(result.CodeInternalError, "unable to persist user")
	}

	c.logger.Info("device unlinked from property",
		"user_id", userID,
		"device_id", deviceID,
		"property_id", propertyID,
	)
	return view, nil
}

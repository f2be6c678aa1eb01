package user

import "time"

// Record is the persisted local mirror of an upstream user, extended with the
// device and property linkage this service owns.
//
// Invariant: every device ID in Devices refers to a device record whose
// UserID equals this record's UserID, and every PropertyView with a non-nil
// DeviceID refers to a device whose PropertyID equals the property's ID. The
// linking protocol maintains both directions.
type Record struct {
	UserID   int64     `json:"userId"`
	Username string    `json:"username"`
	Password string    `json:"password"`
	Token    string    `json:"token"`
	Expires  time.Time `json:"expires"`

	// Profile fields mirrored from the upstream user service.
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`

	Devices    []string       `json:"devices"`
	Properties *PropertyCache `json:"properties,omitempty"`
}

// PropertyCache is the TTL-guarded property list of one user.
type PropertyCache struct {
	Data    []PropertyView `json:"data"`
	Expires time.Time      `json:"expires"`
}

// PropertyView extends an upstream property record with the local device
// linkage fields. A refresh from upstream never clobbers the local fields;
// they are re-attached by property ID.
type PropertyView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	Price       float64 `json:"price"`

	DeviceID       *string `json:"deviceId"`
	DevicePassword string  `json:"devicePassword"`
	Enabled        bool    `json:"enabled"`
}

// DeepCopy returns an independent copy of the record.
func (r *Record) DeepCopy() *Record {
	if r == nil {
		return nil
	}
	cpy := *r
	if r.Devices != nil {
		cpy.Devices = make([]string, len(r.Devices))
		copy(cpy.Devices, r.Devices)
	}
	if r.Properties != nil {
		props := PropertyCache{
			Data:    make([]PropertyView, len(r.Properties.Data)),
			Expires: r.Properties.Expires,
		}
		for i, p := range r.Properties.Data {
			props.Data[i] = p
			if p.DeviceID != nil {
				id := *p.DeviceID
				props.Data[i].DeviceID = &id
			}
		}
		cpy.Properties = &props
	}
	return &cpy
}

// findProperty returns the cached PropertyView with the given ID, or nil.
func (r *Record) findProperty(propertyID int64) *PropertyView {
	if r.Properties == nil {
		return nil
	}
	for i := range r.Properties.Data {
		if r.Properties.Data[i].ID == propertyID {
			return &r.Properties.Data[i]
		}
	}
	return nil
}

// hasDevice reports whether the device ID is in the user's device list.
func (r *Record) hasDevice(deviceID string) bool {
	for _, id := range r.Devices {
		if id == deviceID {
			return true
		}
	}
	return false
}

package device

import (
	"encoding/json"
	"fmt"
	"os"
)

// TypeInfo describes one entry of the static device-type catalog. The catalog
// only feeds the owner-facing device detail view; registration accepts any
// type ID and falls back to the unknown placeholder when displaying it.
type TypeInfo struct {
	DeviceTypeID int    `json:"deviceTypeId"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Image        string `json:"image"`
}

// unknownType is the placeholder returned when a device references a type ID
// the catalog has no entry for.
func unknownType(typeID int) TypeInfo {
	return TypeInfo{
		DeviceTypeID: typeID,
		Name:         "Unknown Device Type",
		Description:  "Unknown Device Type",
		Image:        "/device_types/unknown.png",
	}
}

// Catalog is the immutable device-type catalog loaded at startup.
type Catalog struct {
	types map[int]TypeInfo
}

// NewCatalog builds a catalog from a list of type entries.
func NewCatalog(entries []TypeInfo) *Catalog {
	types := make(map[int]TypeInfo, len(entries))
	for _, e := range entries {
		types[e.DeviceTypeID] = e
	}
	return &Catalog{types: types}
}

// LoadCatalog reads the catalog from a JSON file. A missing file yields an
// empty catalog; every lookup then resolves to the unknown placeholder.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewCatalog(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading device type catalog: %w", err)
	}

	var entries []TypeInfo
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing device type catalog: %w", err)
	}
	return NewCatalog(entries), nil
}

// Lookup returns the catalog entry for a type ID, or the unknown placeholder.
func (c *Catalog) Lookup(typeID int) TypeInfo {
	if info, ok := c.types[typeID]; ok {
		return info
	}
	return unknownType(typeID)
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.types)
}

package user

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/antarticdonkeys/rentstate-hub/internal/infrastructure/database"
	_ "github.com/antarticdonkeys/rentstate-hub/migrations"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return db
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := NewSQLiteStore(db.DB)
	ctx := context.Background()

	deviceID := "dev-1"
	rec := &Record{
		UserID:   7,
		Username: "ana",
		Password: "secret",
		Token:    "tok-1",
		Expires:  time.Now().UTC().Add(time.Hour).Truncate(time.Second),
		Name:     "Ana",
		Email:    "ana@example.com",
		Phone:    "+34600000001",
		Devices:  []string{deviceID},
		Properties: &PropertyCache{
			Data: []PropertyView{
				{ID: 11, Name: "Beach flat", DeviceID: &deviceID, DevicePassword: "pw", Enabled: true},
				{ID: 12, Name: "City loft"},
			},
			Expires: time.Now().UTC().Add(time.Hour).Truncate(time.Second),
		},
	}

	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	records, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Load() = %d records, want 1", len(records))
	}

	got := records[7]
	if got.Username != "ana" || got.Token != "tok-1" {
		t.Errorf("record = %+v", got)
	}
	if len(got.Devices) != 1 || got.Devices[0] != "dev-1" {
		t.Errorf("devices = %v", got.Devices)
	}
	if got.Properties == nil || len(got.Properties.Data) != 2 {
		t.Fatalf("properties = %+v", got.Properties)
	}
	linked := got.Properties.Data[0]
	if linked.DeviceID == nil || *linked.DeviceID != "dev-1" || !linked.Enabled {
		t.Errorf("linked property = %+v", linked)
	}
	if got.Properties.Data[1].DeviceID != nil {
		t.Errorf("unlinked property carries a device: %+v", got.Properties.Data[1])
	}
}

func TestSQLiteStoreSaveReplaces(t *testing.T) {
	db := openTestDB(t)
	store := NewSQLiteStore(db.DB)
	ctx := context.Background()

	rec := &Record{UserID: 7, Username: "ana", Token: "tok-1", Devices: []string{}}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec.Token = "tok-2"
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	records, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if records[7].Token != "tok-2" {
		t.Errorf("token = %q, want tok-2", records[7].Token)
	}
}

func TestSQLiteStoreDelete(t *testing.T) {
	db := openTestDB(t)
	store := NewSQLiteStore(db.DB)
	ctx := context.Background()

	if err := store.Save(ctx, &Record{UserID: 7, Username: "ana"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, 7); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	records, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Load() = %d records after delete, want 0", len(records))
	}

	// Deleting an absent record is not an error.
	if err := store.Delete(ctx, 99); err != nil {
		t.Errorf("Delete() of absent record error = %v", err)
	}
}

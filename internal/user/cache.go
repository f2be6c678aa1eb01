package user

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/antarticdonkeys/rentstate-hub/internal/device"
	"github.com/antarticdonkeys/rentstate-hub/internal/notify"
	"github.com/antarticdonkeys/rentstate-hub/internal/result"
	"github.com/antarticdonkeys/rentstate-hub/internal/upstream"
)

// Logger defines the logging interface used by the Cache.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DeviceRegistry is the slice of the device registry the session cache needs
// for credential checks, linking and projections.
type DeviceRegistry interface {
	Authenticate(deviceID, password string) *result.Error
	LinkToUser(ctx context.Context, deviceID, password string, userID, propertyID int64) (device.View, *result.Error)
	Unlink(ctx context.Context, deviceID, password string) (device.View, *result.Error)
	DetachAllDevicesOf(ctx context.Context, userID int64) error
	View(deviceID string) (device.View, bool)
	FullView(deviceID string) (device.FullView, bool)
}

// AuthService authenticates credentials against the upstream auth server.
type AuthService interface {
	Login(ctx context.Context, username, password string) (upstream.AuthResult, error)
}

// ProfileService fetches extended user records from the upstream user server.
type ProfileService interface {
	GetProfile(ctx context.Context, userID int64) (upstream.Profile, error)
}

// PropertyService fetches property listings from the upstream property server.
type PropertyService interface {
	ListProperties(ctx context.Context, userID int64) ([]upstream.Property, error)
}

// defaultCacheTTL is how long a cached login or property list stays valid.
const defaultCacheTTL = 24 * time.Hour

// Deps holds the dependencies required by the session cache.
type Deps struct {
	Store      Store
	Registry   DeviceRegistry
	Auth       AuthService
	Profiles   ProfileService
	Properties PropertyService
	CacheTTL   time.Duration
}

// Cache owns the in-memory working set of user records, their persistence,
// and the reconciliation logic that keeps them consistent with upstream.
type Cache struct {
	store      Store
	registry   DeviceRegistry
	auth       AuthService
	profiles   ProfileService
	properties PropertyService
	ttl        time.Duration
	logger     Logger

	mu    sync.Mutex
	users map[int64]*Record

	now func() time.Time
}

// NewCache creates a session cache. Call Load before serving requests.
func NewCache(deps Deps) (*Cache, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Auth == nil || deps.Profiles == nil || deps.Properties == nil {
		return nil, fmt.Errorf("upstream services are required")
	}

	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &Cache{
		store:      deps.Store,
		registry:   deps.Registry,
		auth:       deps.Auth,
		profiles:   deps.Profiles,
		properties: deps.Properties,
		ttl:        ttl,
		logger:     noopLogger{},
		users:      make(map[int64]*Record),
		now:        time.Now,
	}, nil
}

// SetLogger sets the logger for the cache.
func (c *Cache) SetLogger(logger Logger) {
	c.logger = logger
}

// Load reads all user records from the store into memory.
// Must be called once at startup; a failure is fatal for the same reason the
// device registry's Load is.
func (c *Cache) Load(ctx context.Context) error {
	users, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading user records: %w", err)
	}

	c.mu.Lock()
	c.users = users
	c.mu.Unlock()

	c.logger.Info("session cache loaded", "users", len(users))
	return nil
}

// Count returns the number of cached users.
func (c *Cache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.users)
}

// Contacts returns the userID-to-contact snapshot consumed by the
// notification dispatcher.
func (c *Cache) Contacts() map[int64]notify.Contact {
	c.mu.Lock()
	defer c.mu.Unlock()

	contacts := make(map[int64]notify.Contact, len(c.users))
	for id, rec := range c.users {
		contacts[id] = notify.Contact{Email: rec.Email, Phone: rec.Phone}
	}
	return contacts
}

// findByUsernameLocked returns the cached record with the given username.
// Caller must hold c.mu.
func (c *Cache) findByUsernameLocked(username string) *Record {
	for _, rec := range c.users {
		if rec.Username == username {
			return rec
		}
	}
	return nil
}

// Login authenticates a user, serving from cache when possible.
//
// Fast path: a cached record with matching username and password whose
// Expires is still in the future is returned without any upstream call.
// Otherwise the upstream auth and profile services are consulted and the
// local record is reconciled: a diverged (userId, username) pairing means the
// old upstream identity was deleted, so the stale local record is dropped and
// its devices detached before the fresh record takes its place.
func (c *Cache) Login(ctx context.Context, username, password string) (*Record, *result.Error) {
	if username == "" || password == "" {
		return nil, result.BadRequest("username and password are required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored := c.findByUsernameLocked(username)
	if stored != nil && stored.Password == password && stored.Expires.After(c.now()) {
		return stored.DeepCopy(), nil
	}

	auth, err := c.auth.Login(ctx, username, password)
	if err != nil {
		return nil, classifyUpstream(err,
			"Invalid username or password",
			"Invalid response from server",
			"Unable to contact real server")
	}

	profile, err := c.profiles.GetProfile(ctx, auth.UserID)
	if err != nil {
		return nil, classifyUpstream(err,
			"Invalid username or password",
			"Invalid response from server",
			"Unable to fetch user data from real server")
	}

	fresh := &Record{
		UserID:   auth.UserID,
		Username: username,
		Password: password,
		Token:    auth.Token,
		Expires:  c.now().Add(c.ttl),
		Name:     profile.Name,
		Email:    profile.Email,
		Phone:    profile.Phone,
		Devices:  []string{},
	}

	// The username may be new while the userId is already cached; that is
	// still an identity divergence and is handled below.
	if stored == nil {
		stored = c.users[fresh.UserID]
	}

	// First login: store as new.
	if stored == nil {
		c.users[fresh.UserID] = fresh
		if serr := c.store.Save(ctx, fresh); serr != nil {
			c.logger.Error("persisting new user failed", "user_id", fresh.UserID, "error", serr)
			return nil, result.Internal(result.CodeInternalError, "unable to persist user")
		}
		c.logger.Info("user cached on first login", "user_id", fresh.UserID)
		return fresh.DeepCopy(), nil
	}

	changed := false

	// A cached record whose (userId, username) pair no longer matches
	// upstream can only mean the old identity was deleted or reassigned
	// there. Upstream truth wins: drop the stale record, detach its
	// devices, and replace it wholesale.
	if fresh.UserID != stored.UserID || fresh.Username != stored.Username {
		staleID := stored.UserID
		delete(c.users, staleID)
		if derr := c.store.Delete(ctx, staleID); derr != nil {
			c.logger.Error("deleting stale user failed", "user_id", staleID, "error", derr)
		}
		if derr := c.registry.DetachAllDevicesOf(ctx, staleID); derr != nil {
			c.logger.Error("detaching devices of stale user failed", "user_id", staleID, "error", derr)
		}
		c.logger.Warn("replaced diverged user identity",
			"stale_user_id", staleID,
			"user_id", fresh.UserID,
			"username", fresh.Username,
		)

		stored = fresh
		c.users[fresh.UserID] = fresh
		changed = true
	}

	// Same identity: refresh the session credentials in place, preserving
	// the cached device list and property linkage.
	if fresh.Token != stored.Token {
		stored.Token = fresh.Token
		changed = true
	}
	if fresh.Password != stored.Password {
		stored.Password = fresh.Password
		changed = true
	}

	if changed {
		if serr := c.store.Save(ctx, stored); serr != nil {
			c.logger.Error("persisting user failed", "user_id", stored.UserID, "error", serr)
			return nil, result.Internal(result.CodeInternalError, "unable to persist user")
		}
	}

	return stored.DeepCopy(), nil
}

// ValidateToken checks the session credential for an authenticated operation.
func (c *Cache) ValidateToken(userID int64, token string) *result.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateTokenLocked(userID, token)
}

// validateTokenLocked is the token-validation rule shared by every
// authenticated operation. Caller must hold c.mu.
func (c *Cache) validateTokenLocked(userID int64, token string) *result.Error {
	if userID == 0 || token == "" {
		return result.BadRequest("userId and token are required")
	}
	rec, ok := c.users[userID]
	if !ok {
		return result.NotFound(result.CodeInvalidUserID, "userId has not logged in previously in this app")
	}
	if rec.Token != token {
		return result.Unauthorized(result.CodeInvalidToken, "userId does not match the given token or token has expired")
	}
	return nil
}

// ListProperties returns the user's property list, serving the cached copy
// while it is fresh and merging upstream data with the local device linkage
// otherwise.
func (c *Cache) ListProperties(ctx context.Context, userID int64, token string) ([]PropertyView, *result.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rerr := c.validateTokenLocked(userID, token); rerr != nil {
		return nil, rerr
	}
	return c.listPropertiesLocked(ctx, c.users[userID])
}

// listPropertiesLocked refreshes the property cache if stale and returns a
// copy of the list. Caller must hold c.mu and have validated the token.
func (c *Cache) listPropertiesLocked(ctx context.Context, rec *Record) ([]PropertyView, *result.Error) {
	if rec.Properties != nil && rec.Properties.Expires.After(c.now()) {
		return copyProperties(rec.Properties.Data), nil
	}

	fetched, err := c.properties.ListProperties(ctx, rec.UserID)
	if err != nil {
		return nil, classifyUpstream(err,
			"Unable to fetch properties from real server",
			"Invalid response from server",
			"Unable to fetch properties from real server")
	}

	// Re-attach the local device linkage by property ID: a refresh must
	// never clobber an existing link.
	views := make([]PropertyView, len(fetched))
	for i, p := range fetched {
		views[i] = PropertyView{
			ID:             p.ID,
			Name:           p.Name,
			Description:    p.Description,
			Location:       p.Location,
			Price:          p.Price,
			DeviceID:       nil,
			DevicePassword: "",
			Enabled:        false,
		}
		if old := rec.findProperty(p.ID); old != nil {
			views[i].DeviceID = old.DeviceID
			views[i].DevicePassword = old.DevicePassword
			views[i].Enabled = old.Enabled
		}
	}

	rec.Properties = &PropertyCache{
		Data:    views,
		Expires: c.now().Add(c.ttl),
	}
	if serr := c.store.Save(ctx, rec); serr != nil {
		c.logger.Error("persisting property cache failed", "user_id", rec.UserID, "error", serr)
		return nil, result.Internal(result.CodeInternalError, "unable to persist user")
	}

	c.logger.Debug("property cache refreshed", "user_id", rec.UserID, "properties", len(views))
	return copyProperties(views), nil
}

// DevicesList projects the user's linked devices through the registry.
func (c *Cache) DevicesList(userID int64, token string) ([]device.View, *result.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rerr := c.validateTokenLocked(userID, token); rerr != nil {
		return nil, rerr
	}

	rec := c.users[userID]
	views := make([]device.View, 0, len(rec.Devices))
	for _, deviceID := range rec.Devices {
		view, ok := c.registry.View(deviceID)
		if !ok {
			// The user's device list references a device the registry no
			// longer knows; the projection cannot be trusted.
			c.logger.Error("device list projection failed",
				"user_id", userID, "device_id", deviceID)
			return nil, result.Internal(result.CodeInternalError, "Unable to fetch devices from local server")
		}
		views = append(views, view)
	}
	return views, nil
}

// DeviceFullData returns the full record of one of the user's devices joined
// with its catalog metadata.
func (c *Cache) DeviceFullData(userID int64, token, deviceID string) (device.FullView, *result.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rerr := c.validateTokenLocked(userID, token); rerr != nil {
		return device.FullView{}, rerr
	}
	if deviceID == "" {
		return device.FullView{}, result.BadRequest("deviceId is required")
	}

	rec := c.users[userID]
	if !rec.hasDevice(deviceID) {
		return device.FullView{}, result.Unauthorized(result.CodeInvalidDeviceID, "Device is not owned by this user")
	}

	full, ok := c.registry.FullView(deviceID)
	if !ok {
		return device.FullView{}, result.NotFound(result.CodeDeviceNotFound, "Device not found")
	}
	return full, nil
}

// copyProperties clones a PropertyView slice including DeviceID pointers.
func copyProperties(data []PropertyView) []PropertyView {
	out := make([]PropertyView, len(data))
	for i, p := range data {
		out[i] = p
		if p.DeviceID != nil {
			id := *p.DeviceID
			out[i].DeviceID = &id
		}
	}
	return out
}

// classifyUpstream maps an upstream client error onto the external-server
// error taxonomy.
func classifyUpstream(err error, rejectedMsg, invalidMsg, unreachableMsg string) *result.Error {
	switch {
	case errors.Is(err, upstream.ErrRejected):
		return result.Unauthorized(result.CodeInvalidCredentials, rejectedMsg)
	case errors.Is(err, upstream.ErrInvalidResponse):
		return result.Internal(result.CodeExtServerInvalidResponse, invalidMsg)
	default:
		return result.Internal(result.CodeExtServerNotFound, unreachableMsg)
	}
}

// Package presence tracks driver heartbeats. Availability is derived from
// the age of the last heartbeat at read time.
package presence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

type Status string

const (
	StatusOffline   Status = "OFFLINE"
	StatusAvailable Status = "AVAILABLE"
	StatusPaused    Status = "PAUSED"
	StatusBusy      Status = "BUSY"
)

const DefaultTimeout = 45 * time.Second

var ErrNotFound = errors.New("presence not found")

type Presence struct {
	DriverID   string    `json:"driver_id"`
	DriverName string    `json:"driver_name,omitempty"`
	Status     Status    `json:"status"`
	LastSeen   time.Time `json:"last_seen"`
	Lat        *float64  `json:"lat,omitempty"`
	Lng        *float64  `json:"lng,omitempty"`
}

// Store is last-write-wins per driver id.
type Store interface {
	Put(ctx context.Context, p Presence) error
	Get(ctx context.Context, driverID string) (Presence, error)
	List(ctx context.Context) ([]Presence, error)
}

type Tracker struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
}

type option func(*Tracker)

func NewTracker(store Store, opts ...option) *Tracker {
	t := &Tracker{store: store, timeout: DefaultTimeout, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithTimeout(d time.Duration) option {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(t *Tracker) { t.now = now }
}

// Heartbeat overwrites the driver's record with LastSeen = now. An empty
// status means AVAILABLE.
func (t *Tracker) Heartbeat(ctx context.Context, driverID string, lat, lng *float64, status Status) (Presence, error) {
	if driverID == "" {
		return Presence{}, fmt.Errorf("heartbeat: missing driver id")
	}
	if status == "" {
		status = StatusAvailable
	}
	p := Presence{DriverID: driverID, Status: status, LastSeen: t.now(), Lat: lat, Lng: lng}
	if prev, err := t.store.Get(ctx, driverID); err == nil {
		p.DriverName = prev.DriverName
	}
	if err := t.store.Put(ctx, p); err != nil {
		return Presence{}, fmt.Errorf("heartbeat %s: %w", driverID, err)
	}
	return p, nil
}

// SetStatus changes the stored status and keeps the last known coordinates.
func (t *Tracker) SetStatus(ctx context.Context, driverID string, status Status) error {
	p, err := t.store.Get(ctx, driverID)
	if errors.Is(err, ErrNotFound) {
		p = Presence{DriverID: driverID}
	} else if err != nil {
		return fmt.Errorf("set status %s: %w", driverID, err)
	}
	p.Status = status
	p.LastSeen = t.now()
	return t.store.Put(ctx, p)
}

func (t *Tracker) stale(p Presence, now time.Time) bool {
	return now.Sub(p.LastSeen) >= t.timeout
}

// Available returns drivers whose stored status is AVAILABLE and whose last
// heartbeat is younger than the timeout.
func (t *Tracker) Available(ctx context.Context) ([]Presence, error) {
	all, err := t.store.List(ctx)
	if err != nil {
		return nil, err
	}
	now := t.now()
	out := make([]Presence, 0, len(all))
	for _, p := range all {
		if p.Status == StatusAvailable && !t.stale(p, now) {
			out = append(out, p)
		}
	}
	sortByID(out)
	return out, nil
}

// IsAvailable reports whether driverID would be returned by Available.
func (t *Tracker) IsAvailable(ctx context.Context, driverID string) (bool, error) {
	p, err := t.store.Get(ctx, driverID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return p.Status == StatusAvailable && !t.stale(p, t.now()), nil
}

// AllWithComputedStatus returns every record with stale ones shown as
// OFFLINE. The override is not written back.
func (t *Tracker) AllWithComputedStatus(ctx context.Context) ([]Presence, error) {
	all, err := t.store.List(ctx)
	if err != nil {
		return nil, err
	}
	now := t.now()
	for i := range all {
		if now.Sub(all[i].LastSeen) > t.timeout {
			all[i].Status = StatusOffline
		}
	}
	sortByID(all)
	return all, nil
}

func sortByID(ps []Presence) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].DriverID < ps[j].DriverID })
}

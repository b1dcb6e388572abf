package redisx

import "time"

const (
	// Presence per driver: presence:{driver_id} -> JSON presence record
	KeyPresence = "presence:%s"

	// Set of every driver that ever sent a heartbeat
	KeyPresenceDrivers = "presence:drivers"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"
)

var (
	// Presence records outlive the staleness window so stale drivers still
	// show up as OFFLINE instead of vanishing.
	TTLPresence = 24 * time.Hour
	TTLDedup    = 48 * time.Hour
)

package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-depot-engine/internal/presence"
)

// PresenceStore keeps one JSON record per driver. Writes are plain SETs, so
// the last heartbeat to land wins.
type PresenceStore struct{ Redis *redis.Client }

func (s *PresenceStore) Put(ctx context.Context, p presence.Presence) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode presence: %w", err)
	}
	pipe := s.Redis.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(KeyPresence, p.DriverID), b, TTLPresence)
	pipe.SAdd(ctx, KeyPresenceDrivers, p.DriverID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *PresenceStore) Get(ctx context.Context, driverID string) (presence.Presence, error) {
	raw, err := s.Redis.Get(ctx, fmt.Sprintf(KeyPresence, driverID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return presence.Presence{}, presence.ErrNotFound
	} else if err != nil {
		return presence.Presence{}, err
	}
	var p presence.Presence
	if err := json.Unmarshal(raw, &p); err != nil {
		return presence.Presence{}, fmt.Errorf("decode presence %s: %w", driverID, err)
	}
	return p, nil
}

func (s *PresenceStore) List(ctx context.Context) ([]presence.Presence, error) {
	ids, err := s.Redis.SMembers(ctx, KeyPresenceDrivers).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf(KeyPresence, id)
	}
	vals, err := s.Redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]presence.Presence, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			// expired record, drop it from the index
			_ = s.Redis.SRem(ctx, KeyPresenceDrivers, ids[i]).Err()
			continue
		}
		var p presence.Presence
		if err := json.Unmarshal([]byte(str), &p); err != nil {
			return nil, fmt.Errorf("decode presence %s: %w", ids[i], err)
		}
		out = append(out, p)
	}
	return out, nil
}

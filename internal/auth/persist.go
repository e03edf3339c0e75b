package auth

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/angelmondragon/nexusshop-storefront/pkg/storage"
)

// Load restores the session stored under the auth key. Missing or corrupt
// blobs leave the shopper signed out.
func (s *Service) Load(ctx context.Context) State {
	raw, err := s.store.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return s.Current()
	}
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "key", s.key), "auth.load_failed", err)
		return s.Current()
	}
	var stored State
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"key": s.key, "error": err.Error()}), "auth.load_corrupt")
		return s.Current()
	}
	if stored.User == nil || stored.Token == "" {
		stored = State{}
	}
	stored.IsAuthenticated = stored.User != nil

	s.mu.Lock()
	s.state = stored
	snapshot := s.state.clone()
	s.mu.Unlock()

	if snapshot.User != nil {
		s.logg.Info(s.logg.WithUserID(ctx, snapshot.User.ID), "auth.restored")
	}
	return snapshot
}

func (s *Service) save(ctx context.Context, state State) {
	raw, err := json.Marshal(state)
	if err != nil {
		s.logg.Error(ctx, "auth.encode_failed", err)
		return
	}
	if err := s.store.Set(ctx, s.key, raw); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "key", s.key), "auth.save_failed", err)
	}
}

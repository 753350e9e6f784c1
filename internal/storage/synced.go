package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"NeoNest/internal/metrics"

	"go.uber.org/zap"
)

// ProfileRemote is the server copy of user_profile.
type ProfileRemote interface {
	// FetchProfile returns ErrNotFound when the server has no profile.
	FetchProfile(ctx context.Context) (string, error)
	PushProfile(ctx context.Context, value string) error
}

// SyncedStore mirrors user_profile to a remote and keeps every other key
// local. Remote failures never fail a call; the local copy wins. While a
// push is in flight the local copy is newer than the remote one and is
// served as is.
type SyncedStore struct {
	Local   Store
	Remote  ProfileRemote
	Timeout time.Duration
	Log     *zap.Logger
	Metrics *metrics.Recorder

	wg      sync.WaitGroup
	mu      sync.Mutex
	pending int
}

func NewSyncedStore(local Store, remote ProfileRemote, log *zap.Logger, m *metrics.Recorder) *SyncedStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncedStore{Local: local, Remote: remote, Timeout: 5 * time.Second, Log: log, Metrics: m}
}

func (s *SyncedStore) pushing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending > 0
}

// Get serves user_profile from the remote and caches it locally, unless a
// push of a newer local copy has not landed yet.
func (s *SyncedStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key != KeyUserProfile || s.pushing() {
		return s.Local.Get(ctx, key)
	}
	rctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	v, err := s.Remote.FetchProfile(rctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.Log.Warn("profile fetch failed, using local copy", zap.Error(err))
		}
		return s.Local.Get(ctx, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending > 0 {
		// a Set started while fetching
		return s.Local.Get(ctx, key)
	}
	if err := s.Local.Set(ctx, key, v); err != nil {
		s.Log.Warn("cache fetched profile", zap.Error(err))
	}
	return v, true, nil
}

// Set writes locally and, for user_profile, pushes to the remote in the
// background. The push outlives ctx.
func (s *SyncedStore) Set(ctx context.Context, key, value string) error {
	if key != KeyUserProfile {
		return s.Local.Set(ctx, key, value)
	}
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
	if err := s.Local.Set(ctx, key, value); err != nil {
		s.done()
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.done()
		pctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
		defer cancel()
		err := s.Remote.PushProfile(pctx, value)
		s.Metrics.Background("profile_push", err)
		if err != nil {
			s.Log.Warn("profile push failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *SyncedStore) done() {
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
}

func (s *SyncedStore) Delete(ctx context.Context, key string) error {
	return s.Local.Delete(ctx, key)
}

func (s *SyncedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.Local.List(ctx, prefix)
}

// Wait blocks until background pushes have finished.
func (s *SyncedStore) Wait() { s.wg.Wait() }

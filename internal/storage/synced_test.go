package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRemote struct {
	mu       sync.Mutex
	profile  string
	fetchErr error
	pushErr  error
	block    bool
	// gate, when set, holds pushes until it is closed
	gate   chan struct{}
	pushed []string
}

func (f *fakeRemote) FetchProfile(ctx context.Context) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile, nil
}

func (f *fakeRemote) PushProfile(ctx context.Context, value string) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, value)
	if f.pushErr == nil {
		f.profile = value
	}
	return f.pushErr
}

func TestSyncedPrefersRemoteProfile(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryStore()
	require.NoError(t, local.Set(ctx, KeyUserProfile, `{"name":"local"}`))
	s := NewSyncedStore(local, &fakeRemote{profile: `{"name":"remote"}`}, nil, nil)

	v, ok, err := s.Get(ctx, KeyUserProfile)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"name":"remote"}`, v)

	v, _, _ = local.Get(ctx, KeyUserProfile)
	assert.Equal(t, `{"name":"remote"}`, v, "fetched profile is cached locally")
}

func TestSyncedServesLocalWhilePushPending(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{profile: `{"name":"old"}`, gate: make(chan struct{})}
	local := NewMemoryStore()
	s := NewSyncedStore(local, remote, nil, nil)

	require.NoError(t, s.Set(ctx, KeyUserProfile, `{"name":"new"}`))
	v, ok, err := s.Get(ctx, KeyUserProfile)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"name":"new"}`, v)
	v, _, _ = local.Get(ctx, KeyUserProfile)
	assert.Equal(t, `{"name":"new"}`, v, "stale remote copy is not written back")

	close(remote.gate)
	s.Wait()
	v, _, err = s.Get(ctx, KeyUserProfile)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"new"}`, v)
}

func TestSyncedFallsBackToLocal(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryStore()
	require.NoError(t, local.Set(ctx, KeyUserProfile, `{"name":"local"}`))

	for name, remote := range map[string]*fakeRemote{
		"missing": {fetchErr: ErrNotFound},
		"failing": {fetchErr: errors.New("503")},
		"slow":    {block: true},
	} {
		t.Run(name, func(t *testing.T) {
			s := NewSyncedStore(local, remote, nil, nil)
			s.Timeout = 20 * time.Millisecond
			v, ok, err := s.Get(ctx, KeyUserProfile)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"name":"local"}`, v)
		})
	}
}

func TestSyncedPushesProfileInBackground(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{pushErr: errors.New("offline")}
	local := NewMemoryStore()
	s := NewSyncedStore(local, remote, nil, nil)

	require.NoError(t, s.Set(ctx, KeyUserProfile, `{"name":"A"}`))
	require.NoError(t, s.Set(ctx, KeyTPNDefaults, `{}`))
	s.Wait()

	assert.Equal(t, []string{`{"name":"A"}`}, remote.pushed)
	v, ok, _ := local.Get(ctx, KeyUserProfile)
	assert.True(t, ok)
	assert.Equal(t, `{"name":"A"}`, v)
}

func TestSyncedPushIsBoundedByTimeout(t *testing.T) {
	s := NewSyncedStore(NewMemoryStore(), &fakeRemote{block: true}, nil, nil)
	s.Timeout = 10 * time.Millisecond
	require.NoError(t, s.Set(context.Background(), KeyUserProfile, `{}`))
	s.Wait()
}

func TestSyncedOtherKeysStayLocal(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{fetchErr: errors.New("must not be called")}
	s := NewSyncedStore(NewMemoryStore(), remote, nil, nil)

	require.NoError(t, s.Set(ctx, KeyNutritionDB, `{}`))
	v, ok, err := s.Get(ctx, KeyNutritionDB)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{}`, v)

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{KeyNutritionDB}, keys)
	require.NoError(t, s.Delete(ctx, KeyNutritionDB))
	assert.Empty(t, remote.pushed)
}

// Package storage is the string key/value persistence used for defaults,
// profiles, nutrient tables and saved history.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	KeyTPNDefaults     = "tpn_defaults"
	KeyUserProfile     = "user_profile"
	KeyNutritionDB     = "nutrition_db"
	KeyBabyHistory     = "baby_history"
	KeyNutAuditHistory = "nut_audit_history"
	KeyFeedbackHistory = "feedback_history"
)

var ErrNotFound = errors.New("key not found")

// Store holds JSON-encoded values under string keys.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// List returns every key starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// LoadJSON decodes the value at key into v. It returns ErrNotFound when the
// key is absent.
func LoadJSON(ctx context.Context, s Store, key string, v any) error {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

type scoped struct {
	inner  Store
	prefix string
}

// Scoped namespaces every key of s under ns, so one physical store can
// serve many devices.
func Scoped(s Store, ns string) Store {
	return &scoped{inner: s, prefix: ns + "/"}
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

func (s *scoped) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.inner.List(ctx, s.prefix+prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, s.prefix)
	}
	return keys, nil
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	HistoryCap       = 200
	HistoryRetention = 30 * 24 * time.Hour
	FeedbackCap      = 20
	suggestLimit     = 5
)

// Entry is one saved calculation for a baby. Inputs and Results are kept
// as raw JSON so TPN and nutrition audits share the format.
type Entry struct {
	ID        string          `json:"id"`
	BabyOf    string          `json:"babyOf"`
	PatientID string          `json:"patientId"`
	Date      string          `json:"date"`
	Inputs    json.RawMessage `json:"inputs"`
	Results   json.RawMessage `json:"results,omitempty"`
	TS        time.Time       `json:"ts"`
}

func (e Entry) sameOrder(o Entry) bool {
	return e.BabyOf == o.BabyOf && e.PatientID == o.PatientID && e.Date == o.Date
}

// LoadHistory returns the list at key, newest first, dropping entries older
// than HistoryRetention. A missing key is an empty history.
func LoadHistory(ctx context.Context, s Store, key string, now time.Time) ([]Entry, error) {
	var all []Entry
	if err := LoadJSON(ctx, s, key, &all); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Entry{}, nil
		}
		return nil, err
	}
	cutoff := now.Add(-HistoryRetention)
	kept := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.TS.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

// AppendHistory puts e at the front, replacing any entry for the same baby,
// patient and date, and trims the list to HistoryCap.
func AppendHistory(ctx context.Context, s Store, key string, e Entry, now time.Time) ([]Entry, error) {
	current, err := LoadHistory(ctx, s, key, now)
	if err != nil {
		return nil, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.TS.IsZero() {
		e.TS = now
	}
	updated := make([]Entry, 0, len(current)+1)
	updated = append(updated, e)
	for _, old := range current {
		if !old.sameOrder(e) {
			updated = append(updated, old)
		}
	}
	if len(updated) > HistoryCap {
		updated = updated[:HistoryCap]
	}
	if err := SaveJSON(ctx, s, key, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// SuggestByName matches babyOf case-insensitively anywhere in the name,
// one suggestion per baby and patient id.
func SuggestByName(entries []Entry, q string) []Entry {
	if q == "" {
		return []Entry{}
	}
	q = strings.ToLower(q)
	out := []Entry{}
	for _, e := range entries {
		if e.BabyOf == "" || !strings.Contains(strings.ToLower(e.BabyOf), q) {
			continue
		}
		if containsEntry(out, func(x Entry) bool { return x.BabyOf == e.BabyOf && x.PatientID == e.PatientID }) {
			continue
		}
		out = append(out, e)
		if len(out) == suggestLimit {
			break
		}
	}
	return out
}

// SuggestByID matches patient ids by prefix, one suggestion per id.
func SuggestByID(entries []Entry, prefix string) []Entry {
	if prefix == "" {
		return []Entry{}
	}
	out := []Entry{}
	for _, e := range entries {
		if e.PatientID == "" || !strings.HasPrefix(e.PatientID, prefix) {
			continue
		}
		if containsEntry(out, func(x Entry) bool { return x.PatientID == e.PatientID }) {
			continue
		}
		out = append(out, e)
		if len(out) == suggestLimit {
			break
		}
	}
	return out
}

func containsEntry(list []Entry, match func(Entry) bool) bool {
	for _, x := range list {
		if match(x) {
			return true
		}
	}
	return false
}

// FeedbackEntry is the local copy of a submitted feedback message.
type FeedbackEntry struct {
	Type       string    `json:"type"`
	Priority   string    `json:"priority"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	AppVersion string    `json:"appVersion,omitempty"`
	Device     string    `json:"device,omitempty"`
	Browser    string    `json:"browser,omitempty"`
	Screen     string    `json:"screen,omitempty"`
}

// AppendFeedback records e at the front of feedback_history, capped at
// FeedbackCap.
func AppendFeedback(ctx context.Context, s Store, e FeedbackEntry) ([]FeedbackEntry, error) {
	var list []FeedbackEntry
	if err := LoadJSON(ctx, s, KeyFeedbackHistory, &list); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	list = append([]FeedbackEntry{e}, list...)
	if len(list) > FeedbackCap {
		list = list[:FeedbackCap]
	}
	if err := SaveJSON(ctx, s, KeyFeedbackHistory, list); err != nil {
		return nil, err
	}
	return list, nil
}

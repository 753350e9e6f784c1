// Package remote talks to the profile/feedback proxy.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"NeoNest/internal/repo"
	"NeoNest/internal/storage"
)

const DefaultTimeout = 5 * time.Second

type Client struct {
	BaseURL    string
	DeviceID   string
	HTTPClient *http.Client
}

func NewClient(baseURL, deviceID string) *Client {
	return &Client{
		BaseURL:    baseURL,
		DeviceID:   deviceID,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// StatusError is a non-2xx reply from the proxy.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("proxy returned %d: %s", e.Code, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &StatusError{Code: res.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// GetProfile fetches the profile for this device, falling back to email on
// the server side. It returns repo.ErrNotFound when there is none.
func (c *Client) GetProfile(ctx context.Context, email string) (repo.Profile, error) {
	q := url.Values{"device_id": {c.DeviceID}}
	if email != "" {
		q.Set("email", email)
	}
	var list []repo.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profile?"+q.Encode(), nil, &list); err != nil {
		return repo.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if len(list) == 0 {
		return repo.Profile{}, repo.ErrNotFound
	}
	return list[0], nil
}

func (c *Client) SaveProfile(ctx context.Context, p repo.Profile) error {
	p.DeviceID = c.DeviceID
	if err := c.do(ctx, http.MethodPost, "/api/profile", p, nil); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (c *Client) SendFeedback(ctx context.Context, f repo.Feedback) error {
	f.DeviceID = c.DeviceID
	if err := c.do(ctx, http.MethodPost, "/api/feedback", f, nil); err != nil {
		return fmt.Errorf("send feedback: %w", err)
	}
	return nil
}

// ProfileSync adapts the client to storage.ProfileRemote. Email is read
// from the local profile so a reinstalled device can recover its profile.
type ProfileSync struct {
	Client *Client
	Local  storage.Store
}

func (s ProfileSync) FetchProfile(ctx context.Context) (string, error) {
	var local repo.Profile
	_ = storage.LoadJSON(ctx, s.Local, storage.KeyUserProfile, &local)
	p, err := s.Client.GetProfile(ctx, local.Email)
	if errors.Is(err, repo.ErrNotFound) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	p.DeviceID = ""
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s ProfileSync) PushProfile(ctx context.Context, value string) error {
	var p repo.Profile
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}
	return s.Client.SaveProfile(ctx, p)
}

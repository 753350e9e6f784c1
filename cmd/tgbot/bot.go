package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Update struct {
	UpdateID int      `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int    `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Bot is a minimal Telegram Bot API client.
type Bot struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewBot(token string) *Bot {
	return &Bot{
		BaseURL:    "https://api.telegram.org",
		Token:      token,
		HTTPClient: &http.Client{Timeout: 40 * time.Second},
	}
}

func (b *Bot) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/%s", b.BaseURL, b.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := b.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	var r apiResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return fmt.Errorf("%s: decode: %w", method, err)
	}
	if !r.OK {
		return fmt.Errorf("%s: %s", method, r.Description)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(r.Result, out)
}

func (b *Bot) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := b.call(ctx, "getUpdates", map[string]any{"offset": offset, "timeout": int(timeout.Seconds())}, &updates)
	return updates, err
}

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	return b.call(ctx, "sendMessage", map[string]any{"chat_id": chatID, "text": text}, nil)
}

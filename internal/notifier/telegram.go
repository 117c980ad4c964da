// Package notifier pushes trade events to a Telegram chat. Delivery is best
// effort: the trading loop never blocks on, or fails because of, a
// notification.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"upbot/internal/agent"
	"upbot/internal/logger"
)

const defaultAPIBase = "https://api.telegram.org"

type Telegram struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

var _ agent.Notifier = (*Telegram)(nil)

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:   token,
		chatID:  chatID,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SetAPIBase overrides the Telegram endpoint, for tests.
func (t *Telegram) SetAPIBase(base string) { t.apiBase = base }

// Notify sends the text with up to three attempts. Failures are logged and
// swallowed.
func (t *Telegram) Notify(ctx context.Context, text string) {
	if t.token == "" || t.chatID == "" {
		return
	}
	if err := t.send(ctx, text); err != nil {
		logger.Warnf("telegram notify: %v", err)
	}
}

func (t *Telegram) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]any{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return lastErr
}

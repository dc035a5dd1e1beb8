package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// Telegram posts trade alerts to a channel via the bot API.
type Telegram struct {
	Token   string
	ChatID  string
	BaseURL string // defaults to the public API; overridable for tests
	Client  *http.Client
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		Token:   token,
		ChatID:  chatID,
		BaseURL: telegramAPI,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Telegram) Notify(ctx context.Context, a TradeAlert) error {
	text := fmt.Sprintf(
		"*New Trade Placed*\n"+
			"*%s* | *%s*\n"+
			"Entry: `%.5g`\n"+
			"SL: `%.5g`\n"+
			"TP: `%.5g`\n"+
			"Volume: `%.2f`\n"+
			"Strategy: `%s`\n"+
			"Order ID: `%s`",
		a.Instrument, a.Direction, a.Price, a.StopLoss, a.TakeProfit,
		a.Volume, a.Strategy, a.OrderID,
	)

	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram send: status %d", resp.StatusCode)
	}
	return nil
}

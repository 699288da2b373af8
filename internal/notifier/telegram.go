package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// TelegramNotifier posts ranking reports and crossing alerts to one chat
// through the Bot API. The same chat is the only one allowed to issue commands.
type TelegramNotifier struct {
	BaseURL    string
	BotToken   string
	ChatID     string
	Client     *http.Client
	RetryDelay time.Duration // first retry delay, doubled each attempt
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// NewTelegramNotifier targets chatID; proxyURL may be empty.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BaseURL:    "https://api.telegram.org",
		BotToken:   botToken,
		ChatID:     chatID,
		RetryDelay: time.Second,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Notify posts the crossing summary and the ranking table as one HTML message.
// The PDF and workbook attachments only go out by email.
func (t *TelegramNotifier) Notify(ctx context.Context, r Report) error {
	return t.SendWithRetry(ctx, FormatTelegramReport(r), 3)
}

// Send posts HTML text to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: t.ChatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// SendWithRetry retries Send with doubling delays, giving up after maxRetries+1 attempts.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = t.Send(ctx, text)
		if lastErr == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		wait := t.RetryDelay << uint(attempt)
		log.Printf("[WARN] telegram message to chat %s failed (attempt %d/%d): %v, retrying in %v",
			t.ChatID, attempt+1, maxRetries+1, lastErr, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"IvyRanker/internal/model"
)

func TestFormatBody(t *testing.T) {
	assert.Equal(t, "Number of moving average crossings today: 3\n\n", FormatBody(3))
}

func TestFormatTelegramReport_EscapesAndWrapsTable(t *testing.T) {
	msg := FormatTelegramReport(Report{
		Subject: "Ivy Portfolio Metrics",
		Body:    FormatBody(1),
		Table:   "SPY <1>",
	})
	assert.Contains(t, msg, "<b>Ivy Portfolio Metrics</b>")
	assert.Contains(t, msg, "<pre>SPY &lt;1&gt;</pre>")
}

func TestFormatTelegramReport_Truncates(t *testing.T) {
	var table strings.Builder
	for i := 0; i < 500; i++ {
		table.WriteString("SPY      1.00      2.00      3.00\n")
	}
	msg := FormatTelegramReport(Report{Subject: "s", Body: "b", Table: table.String()})
	assert.LessOrEqual(t, len(msg), telegramLimit)
	assert.True(t, strings.HasSuffix(msg, "…</pre>"))
}

func TestFormatCrossAlert(t *testing.T) {
	msg := FormatCrossAlert(model.IndicatorSnapshot{
		Symbol:               "QQQ",
		Date:                 time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		FiftyDay:             101.5,
		TwoHundredDay:        99.25,
		FiftyAboveTwoHundred: true,
		CrossedToday:         true,
	})
	assert.Contains(t, msg, "QQQ")
	assert.Contains(t, msg, "crossed above")
	assert.Contains(t, msg, "2024-03-01")
	assert.Contains(t, msg, "50DAY 101.50 | 200DAY 99.25")
}

func TestFormatFailures(t *testing.T) {
	assert.Empty(t, FormatFailures(nil))
	out := FormatFailures([]model.SymbolError{{Symbol: "XYZ", Err: model.ErrInsufficientData}})
	assert.Contains(t, out, "XYZ (INSUFFICIENT_DATA)")
}

func TestEmailNotifier_BuildMessages(t *testing.T) {
	dir := t.TempDir()
	attachment := filepath.Join(dir, "ivy_portfolio.txt")
	require.NoError(t, os.WriteFile(attachment, []byte("table"), 0o644))

	n := NewEmailNotifier("smtp.example.com", 587, "bot@example.com", "secret",
		[]string{"a@example.com", "b@example.com"})
	msgs, err := n.buildMessages(Report{
		Subject:     "Ivy Portfolio Metrics",
		Body:        FormatBody(2),
		Attachments: []string{attachment},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	var buf bytes.Buffer
	_, err = msgs[1].WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Ivy Portfolio Metrics")
	assert.Contains(t, raw, "b@example.com")
	assert.Contains(t, raw, "ivy_portfolio.txt")
	assert.Contains(t, raw, "crossings today: 2")
}

func TestEmailNotifier_MissingAttachment(t *testing.T) {
	n := NewEmailNotifier("smtp.example.com", 587, "bot@example.com", "secret", []string{"a@example.com"})
	_, err := n.buildMessages(Report{Subject: "s", Attachments: []string{"/nonexistent/plot.pdf"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plot.pdf")
}

func TestEmailNotifier_Retries(t *testing.T) {
	n := NewEmailNotifier("smtp.example.com", 587, "bot@example.com", "secret", []string{"a@example.com"})
	n.Backoff = time.Millisecond
	calls := 0
	n.send = func(_ context.Context, msgs ...*mail.Msg) error {
		calls++
		if calls < 3 {
			return errors.New("421 try again")
		}
		assert.Len(t, msgs, 1)
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), Report{Subject: "s", Body: "b"}))
	assert.Equal(t, 3, calls)
}

func TestEmailNotifier_RetriesOnlyFailedRecipient(t *testing.T) {
	n := NewEmailNotifier("smtp.example.com", 587, "bot@example.com", "secret",
		[]string{"a@example.com", "b@example.com", "c@example.com"})
	n.Backoff = time.Millisecond

	delivered := map[string]int{}
	failedOnce := false
	n.send = func(_ context.Context, msgs ...*mail.Msg) error {
		require.Len(t, msgs, 1)
		to := msgs[0].GetToString()
		require.Len(t, to, 1)
		if strings.Contains(to[0], "b@example.com") && !failedOnce {
			failedOnce = true
			return errors.New("451 temporary failure")
		}
		delivered[to[0]]++
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), Report{Subject: "s", Body: "b"}))
	require.Len(t, delivered, 3)
	for rcpt, count := range delivered {
		assert.Equal(t, 1, count, rcpt)
	}
}

func TestEmailNotifier_OneRecipientFailsOthersDelivered(t *testing.T) {
	n := NewEmailNotifier("smtp.example.com", 587, "bot@example.com", "secret",
		[]string{"a@example.com", "bad@example.com"})
	n.Backoff = time.Millisecond
	n.MaxRetries = 2

	calls := map[string]int{}
	n.send = func(_ context.Context, msgs ...*mail.Msg) error {
		to := msgs[0].GetToString()[0]
		calls[to]++
		if strings.Contains(to, "bad@") {
			return errors.New("550 mailbox unavailable")
		}
		return nil
	}

	err := n.Notify(context.Background(), Report{Subject: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad@example.com")
	assert.Contains(t, err.Error(), "all 3 retries exhausted")
	for rcpt, c := range calls {
		if strings.Contains(rcpt, "bad@") {
			assert.Equal(t, 3, c)
		} else {
			assert.Equal(t, 1, c)
		}
	}
}

func TestEmailNotifier_RetriesExhausted(t *testing.T) {
	n := NewEmailNotifier("smtp.example.com", 587, "bot@example.com", "secret", []string{"a@example.com"})
	n.Backoff = time.Millisecond
	n.MaxRetries = 1
	n.send = func(context.Context, ...*mail.Msg) error { return errors.New("refused") }

	err := n.Notify(context.Background(), Report{Subject: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 retries exhausted")
}

func TestEmailNotifier_NoRecipients(t *testing.T) {
	n := NewEmailNotifier("smtp.example.com", 587, "bot@example.com", "secret", nil)
	n.send = func(context.Context, ...*mail.Msg) error {
		t.Fatal("send must not be called")
		return nil
	}
	assert.NoError(t, n.Notify(context.Background(), Report{Subject: "s"}))
}

func TestTelegramNotifier_Notify(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = srv.URL
	require.NoError(t, n.Notify(context.Background(), Report{Subject: "Ivy Portfolio Metrics", Body: FormatBody(0)}))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Contains(t, got["text"], "crossings today: 0")
}

func TestTelegramNotifier_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = srv.URL
	err := n.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestTelegramNotifier_SendWithRetryRecovers(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = srv.URL
	n.RetryDelay = time.Millisecond
	require.NoError(t, n.SendWithRetry(context.Background(), "alert", 3))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	atomic.StoreInt32(&calls, -10)
	err := n.SendWithRetry(context.Background(), "alert", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 retries exhausted")
	assert.Contains(t, err.Error(), "status 429")
}

func TestTelegramNotifier_PollingAnswersOnlyConfiguredChat(t *testing.T) {
	replies := make(chan string, 1)
	var polled atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if polled.Swap(true) {
				<-r.Context().Done()
				return
			}
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":6,"message":{"text":"/run","chat":{"id":999}}},
				{"update_id":7,"message":{"text":" /help ","chat":{"id":42}}}]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			replies <- body["text"]
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = srv.URL
	handled := make(chan string, 2)
	go n.StartPolling(ctx, func(_ context.Context, cmd string) string {
		handled <- cmd
		return "got " + cmd
	})

	select {
	case reply := <-replies:
		assert.Equal(t, "got /help", reply)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
	// the /run from chat 999 came first in the batch and must not reach the handler
	require.Len(t, handled, 1)
	assert.Equal(t, "/help", <-handled)
}

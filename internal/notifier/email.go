package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/wneessen/go-mail"
)

// EmailNotifier mails the report, with its files attached, to every recipient.
type EmailNotifier struct {
	Host       string
	Port       int
	User       string
	Password   string
	Recipients []string
	MaxRetries int
	Backoff    time.Duration

	// send delivers built messages; replaced in tests.
	send func(ctx context.Context, msgs ...*mail.Msg) error
}

// NewEmailNotifier creates an SMTP notifier using STARTTLS and plain auth.
func NewEmailNotifier(host string, port int, user, password string, recipients []string) *EmailNotifier {
	n := &EmailNotifier{
		Host:       host,
		Port:       port,
		User:       user,
		Password:   password,
		Recipients: recipients,
		MaxRetries: 3,
		Backoff:    2 * time.Second,
	}
	n.send = n.dialAndSend
	return n
}

func (n *EmailNotifier) Name() string { return "email" }

// Notify sends one message per recipient. Each message is retried on its own,
// so a failure for one recipient never resends to the others.
func (n *EmailNotifier) Notify(ctx context.Context, r Report) error {
	if len(n.Recipients) == 0 {
		log.Println("[WARN] no mail recipients configured, skipping email")
		return nil
	}
	msgs, err := n.buildMessages(r)
	if err != nil {
		return err
	}

	var errs []error
	for i, m := range msgs {
		rcpt := n.Recipients[i]
		if err := n.sendWithRetry(ctx, rcpt, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[ERROR] email to %s failed: %v", rcpt, err)
			errs = append(errs, fmt.Errorf("%s: %w", rcpt, err))
			continue
		}
		log.Printf("[INFO] sent email to %s", rcpt)
	}
	return errors.Join(errs...)
}

func (n *EmailNotifier) sendWithRetry(ctx context.Context, rcpt string, m *mail.Msg) error {
	var lastErr error
	for i := 0; i <= n.MaxRetries; i++ {
		err := n.send(ctx, m)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == n.MaxRetries {
			break
		}
		backoff := n.Backoff * time.Duration(1<<uint(i))
		log.Printf("[WARN] email to %s failed (attempt %d/%d): %v, retrying in %v", rcpt, i+1, n.MaxRetries+1, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", n.MaxRetries+1, lastErr)
}

func (n *EmailNotifier) buildMessages(r Report) ([]*mail.Msg, error) {
	for _, path := range r.Attachments {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("attachment %s: %w", filepath.Base(path), err)
		}
	}

	msgs := make([]*mail.Msg, 0, len(n.Recipients))
	for _, rcpt := range n.Recipients {
		m := mail.NewMsg()
		if err := m.From(n.User); err != nil {
			return nil, fmt.Errorf("set sender %q: %w", n.User, err)
		}
		if err := m.To(rcpt); err != nil {
			return nil, fmt.Errorf("set recipient %q: %w", rcpt, err)
		}
		m.Subject(r.Subject)
		m.SetBodyString(mail.TypeTextPlain, r.Body)
		for _, path := range r.Attachments {
			m.AttachFile(path)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (n *EmailNotifier) dialAndSend(ctx context.Context, msgs ...*mail.Msg) error {
	client, err := mail.NewClient(n.Host,
		mail.WithPort(n.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.User),
		mail.WithPassword(n.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msgs...)
}

package notifier

import "context"

// Report is the payload delivered after a batch run.
type Report struct {
	Subject     string
	Body        string
	Table       string
	Attachments []string // file paths
}

// Notifier delivers a report over one channel.
type Notifier interface {
	Notify(ctx context.Context, r Report) error
	Name() string
}

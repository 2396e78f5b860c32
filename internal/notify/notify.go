// Package notify delivers failure notifications. Delivery is fire-and-forget:
// a channel error is logged and never reaches the command's caller.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/LaravelPlus/commander/internal/event"
	"github.com/LaravelPlus/commander/internal/logging"
	"github.com/LaravelPlus/commander/pkg/types"
)

// Channel names accepted in notification_channels.
const (
	ChannelLog     = "log"
	ChannelWebhook = "webhook"
)

// deliveryTimeout bounds one notification across all channels.
const deliveryTimeout = time.Minute

// Failure is the payload sent for a failed execution.
type Failure struct {
	Event         string    `json:"event"`
	ExecutionID   string    `json:"execution_id,omitempty"`
	Command       string    `json:"command"`
	ReturnCode    int       `json:"return_code"`
	Output        string    `json:"output"`
	ExecutionTime float64   `json:"execution_time"`
	ExecutedBy    string    `json:"executed_by,omitempty"`
	Environment   string    `json:"environment"`
	FailedAt      time.Time `json:"failed_at"`
}

// Channel delivers one notification.
type Channel interface {
	Name() string
	Notify(ctx context.Context, f Failure) error
}

// Notifier fans a failure out to every configured channel.
type Notifier struct {
	channels []Channel
	wg       sync.WaitGroup
}

// New builds the channels named in cfg. Unknown names are skipped with a warning.
func New(cfg *types.Config) *Notifier {
	n := &Notifier{}
	for _, name := range cfg.NotificationChannels {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ChannelLog:
			n.channels = append(n.channels, LogChannel{})
		case ChannelWebhook:
			if cfg.Webhook.URL == "" {
				logging.Warn().Msg("webhook notification channel configured without a url")
				continue
			}
			n.channels = append(n.channels, NewWebhook(cfg.Webhook))
		default:
			logging.Warn().Str("channel", name).Msg("unknown notification channel")
		}
	}
	return n
}

// NewWithChannels creates a notifier over explicit channels.
func NewWithChannels(channels ...Channel) *Notifier {
	return &Notifier{channels: channels}
}

// Channels returns the active channels.
func (n *Notifier) Channels() []Channel {
	return n.channels
}

// Attach subscribes the notifier to execution.failed events.
func (n *Notifier) Attach(bus *event.Bus) func() {
	if len(n.channels) == 0 {
		return func() {}
	}
	return bus.Subscribe(event.ExecutionFailed, func(e event.Event) {
		data, ok := e.Data.(event.ExecutionFinishedData)
		if !ok {
			return
		}
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
			defer cancel()
			n.Send(ctx, failureFrom(data))
		}()
	})
}

// Send delivers f on every channel and logs failures.
func (n *Notifier) Send(ctx context.Context, f Failure) {
	for _, ch := range n.channels {
		if err := ch.Notify(ctx, f); err != nil {
			logging.Error().Err(err).
				Str("channel", ch.Name()).
				Str("command", f.Command).
				Msg("failure notification not delivered")
		}
	}
}

// Wait blocks until in-flight deliveries started by Attach finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func failureFrom(d event.ExecutionFinishedData) Failure {
	return Failure{
		Event:         "command.failed",
		ExecutionID:   d.ExecutionID,
		Command:       d.Command,
		ReturnCode:    d.ReturnCode,
		Output:        d.Output,
		ExecutionTime: d.ExecutionTime,
		ExecutedBy:    d.ExecutedBy,
		Environment:   d.Environment,
		FailedAt:      d.CompletedAt,
	}
}

// LogChannel writes the failure to the application log.
type LogChannel struct{}

func (LogChannel) Name() string { return ChannelLog }

func (LogChannel) Notify(_ context.Context, f Failure) error {
	logging.Error().
		Str("command", f.Command).
		Str("execution_id", f.ExecutionID).
		Int("return_code", f.ReturnCode).
		Float64("execution_time", f.ExecutionTime).
		Str("environment", f.Environment).
		Msg("command failed")
	return nil
}

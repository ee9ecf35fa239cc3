package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
)

// Notification is the JSON body posted to the webhook.
type Notification struct {
	Event       string                   `json:"event"`
	ID          string                   `json:"id"`
	MirrorKey   string                   `json:"mirrorKey"`
	Appointment appointment.Appointment  `json:"appointment"`
	Previous    *appointment.Appointment `json:"previous,omitempty"`
	OccurredAt  time.Time                `json:"occurredAt"`
}

// WebhookNotifier posts every change to an HTTP endpoint. Consecutive failures
// open a circuit breaker so a dead endpoint is not hammered.
type WebhookNotifier struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[struct{}]
	now    func() time.Time
}

func NewWebhookNotifier(url string, timeout time.Duration, log zerolog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "notify-webhook",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		cb:     cb,
		now:    time.Now,
	}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

func (n *WebhookNotifier) Apply(ctx context.Context, change appointment.Change) error {
	body, err := json.Marshal(Notification{
		Event:       "appointment." + string(change.Kind),
		ID:          change.Record.ID.String(),
		MirrorKey:   change.Record.MirrorKey(),
		Appointment: change.Record.Appointment,
		Previous:    change.Previous,
		OccurredAt:  n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	_, err = n.cb.Execute(func() (struct{}, error) {
		return struct{}{}, n.post(ctx, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("notification skipped: %w", err)
	}
	return err
}

func (n *WebhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("post notification: unexpected status %d", resp.StatusCode)
	}
	return nil
}

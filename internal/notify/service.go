package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MetricsRecorder is an optional callback for recording delivery outcomes.
type MetricsRecorder func(success bool)

// Service manages subscriptions and dispatches custody events to them.
type Service struct {
	repo       *Repository
	httpClient *http.Client
	onMetrics  MetricsRecorder
	logger     *zap.Logger
}

// NewService creates a notification Service.
func NewService(repo *Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (s *Service) SetMetricsRecorder(fn MetricsRecorder) {
	s.onMetrics = fn
}

// Subscribe creates a new subscription with a generated HMAC secret.
// The secret is delivered once, in the returned Subscription.
func (s *Service) Subscribe(req *CreateSubscriptionRequest) (*Subscription, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	sub := &Subscription{
		URL:    req.URL,
		Events: req.Events,
		Secret: secret,
	}
	s.repo.Create(sub)
	return sub, nil
}

// Unsubscribe deletes a subscription.
func (s *Service) Unsubscribe(subID uuid.UUID) error {
	return s.repo.Delete(subID)
}

// List returns all subscriptions.
func (s *Service) List() []*Subscription {
	return s.repo.List()
}

// Deliveries returns the recorded delivery attempts for a subscription.
func (s *Service) Deliveries(subID uuid.UUID) []*Delivery {
	return s.repo.Deliveries(subID)
}

// Dispatch fans out an event to all matching subscriptions. Deliveries run
// in the background; Dispatch itself never blocks the custody write path.
func (s *Service) Dispatch(ctx context.Context, eventType string, payload map[string]string) {
	subs := s.repo.ListByEvent(eventType)
	if len(subs) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	for _, sub := range subs {
		go s.deliver(ctx, sub, event)
	}
}

// deliver sends the event to a single subscription with retries.
func (s *Service) deliver(ctx context.Context, sub *Subscription, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("notify: marshal event", zap.Error(err))
		return
	}

	signature := signPayload(body, sub.Secret)

	// Exponential backoff before each retry: 1s, then 5s.
	backoff := []time.Duration{1 * time.Second, 5 * time.Second}

	for attempt := 1; attempt <= 3; attempt++ {
		if attempt > 1 {
			time.Sleep(backoff[attempt-2])
		}

		success, statusCode, errMsg := s.doDelivery(ctx, sub.URL, body, signature)

		s.repo.RecordDelivery(&Delivery{
			SubscriptionID: sub.ID,
			EventType:      event.Type,
			StatusCode:     statusCode,
			Attempt:        attempt,
			Success:        success,
			ErrorMessage:   errMsg,
		})

		if s.onMetrics != nil {
			s.onMetrics(success)
		}

		if success {
			return
		}

		s.logger.Warn("notify: delivery failed",
			zap.String("url", sub.URL),
			zap.Int("attempt", attempt),
			zap.String("error", errMsg),
		)
	}
}

// doDelivery performs a single HTTP POST delivery.
func (s *Service) doDelivery(ctx context.Context, url string, body []byte, signature string) (bool, int, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, 0, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forchain-Signature", signature)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, 0, err.Error()
	}
	defer resp.Body.Close()
	io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	errMsg := ""
	if !success {
		errMsg = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return success, resp.StatusCode, errMsg
}

// signPayload computes an HMAC-SHA256 signature.
func signPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// generateSecret creates a random 32-byte hex-encoded secret.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// GatewaySender delivers one-time codes through an HTTP SMS gateway. Delivery
// failures are returned to the caller; the reset workflow decides what to do
// with the already-persisted code.
type GatewaySender struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

func NewGatewaySender(endpoint, apiKey, from string) *GatewaySender {
	return &GatewaySender{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   apiKey,
		from:     strings.TrimSpace(from),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *GatewaySender) SendResetCode(ctx context.Context, phone, code string) error {
	if s.endpoint == "" {
		return errors.New("sms: gateway endpoint not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"to":      phone,
		"from":    s.from,
		"message": fmt.Sprintf("Your Fresh Valley password reset code is %s. It expires in 10 minutes.", code),
	})
	if err != nil {
		return fmt.Errorf("sms: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms: gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// ConsoleSender writes the code to the process log instead of texting it.
// Used in development when no gateway is configured. The code is the one
// secret deliberately allowed into the log here.
type ConsoleSender struct{}

func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

func (s *ConsoleSender) SendResetCode(ctx context.Context, phone, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Printf("SMS to %s: your reset code is %s (valid for 10 minutes)", phone, code)
	return nil
}

// Package sms dispatches verification-code text messages.
// It supports a log-only development mode and an HTTP webhook provider mode.
package sms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Sender defines the interface for sending verification codes.
type Sender interface {
	SendCode(phone, code string) error
}

// Config holds SMS dispatch configuration.
type Config struct {
	Mode       string // "log" or "http"
	WebhookURL string
	APIKey     string
}

// NewConfig reads SMS configuration from environment variables.
// SMS_MODE defaults to "log": codes are written to the process log only.
func NewConfig() *Config {
	mode := os.Getenv("SMS_MODE")
	if mode == "" {
		mode = "log"
	}
	return &Config{
		Mode:       mode,
		WebhookURL: os.Getenv("SMS_WEBHOOK_URL"),
		APIKey:     os.Getenv("SMS_API_KEY"),
	}
}

// NewSender creates a Sender for the configured mode.
func NewSender(cfg *Config) Sender {
	if cfg.Mode == "http" && cfg.WebhookURL != "" {
		return &httpSender{
			url:    cfg.WebhookURL,
			apiKey: cfg.APIKey,
			client: &http.Client{Timeout: 10 * time.Second},
		}
	}
	return &logSender{}
}

// logSender writes codes to the log instead of sending real messages.
type logSender struct{}

func (s *logSender) SendCode(phone, code string) error {
	slog.Info("SMS verification code (log mode)", "phone", phone, "code", code)
	return nil
}

// httpSender forwards codes to an external SMS provider webhook.
type httpSender struct {
	url    string
	apiKey string
	client *http.Client
}

func (s *httpSender) SendCode(phone, code string) error {
	body, err := json.Marshal(map[string]string{
		"phone":   phone,
		"content": fmt.Sprintf("您的验证码是 %s，5分钟内有效。", code),
	})
	if err != nil {
		return fmt.Errorf("encode sms payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}
	return nil
}

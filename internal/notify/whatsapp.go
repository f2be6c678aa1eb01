package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// whatsappTimeout bounds each gateway call; the dispatcher never waits on a
// hung delivery longer than this.
const whatsappTimeout = 3 * time.Second

// WhatsappConfig configures the WhatsApp gateway channel.
type WhatsappConfig struct {
	// URL is the gateway endpoint messages are POSTed to.
	URL string

	// Token authenticates against the gateway, sent as a bearer token.
	Token string
}

// WhatsappSender delivers notifications through an HTTP WhatsApp gateway.
type WhatsappSender struct {
	cfg  WhatsappConfig
	http *http.Client
}

// NewWhatsappSender creates a WhatsApp sender.
func NewWhatsappSender(cfg WhatsappConfig) *WhatsappSender {
	return &WhatsappSender{
		cfg:  cfg,
		http: &http.Client{Timeout: whatsappTimeout},
	}
}

// Send delivers a plain-text message to a phone number.
func (s *WhatsappSender) Send(phone, text string) error {
	body, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": text,
	})
	if err != nil {
		return fmt.Errorf("marshalling whatsapp message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("contacting whatsapp gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("whatsapp gateway returned %d for %s", resp.StatusCode, phone)
	}
	return nil
}

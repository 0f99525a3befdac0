package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

const whatsAppAPIBase = "https://graph.facebook.com/v19.0"

// WhatsAppConfig holds credentials for the WhatsApp Cloud API.
type WhatsAppConfig struct {
	Token   string
	PhoneID string
}

// WhatsAppSender delivers chat messages through the WhatsApp Cloud API. The
// HTTP client retries transient failures internally; callers only observe the
// final success or error.
type WhatsAppSender struct {
	config  WhatsAppConfig
	client  *retryablehttp.Client
	baseURL string
}

// NewWhatsAppSender creates a WhatsAppSender, or nil when credentials are
// missing so the chat-messaging channel reports a configuration failure.
func NewWhatsAppSender(config WhatsAppConfig) *WhatsAppSender {
	if config.Token == "" || config.PhoneID == "" {
		return nil
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	return &WhatsAppSender{config: config, client: client, baseURL: whatsAppAPIBase}
}

// sendTextRequest is the Cloud API payload for a plain text message.
type sendTextRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// SendText sends a text message to the given phone number (E.164).
func (s *WhatsAppSender) SendText(ctx context.Context, phone, body string) error {
	payload := sendTextRequest{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
	}
	payload.Text.Body = body

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.baseURL, s.config.PhoneID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("building whatsapp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp API error: %s: %s", resp.Status, detail)
	}
	return nil
}

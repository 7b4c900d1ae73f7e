package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
)

// WebhookAdapter implements NotificationTrigger by posting requests to the
// external delivery pipeline's webhook. Delivery channels (WhatsApp, SMS,
// push) live entirely behind that pipeline.
type WebhookAdapter struct {
	apiKey     string
	client     *http.Client
	webhookURL string
}

// NewWebhookAdapter creates a new webhook notification adapter
func NewWebhookAdapter(webhookURL, apiKey string) providers.NotificationTrigger {
	return &WebhookAdapter{
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

// Trigger posts one notification request to the webhook
func (a *WebhookAdapter) Trigger(ctx context.Context, request *entities.NotificationRequest) error {
	body, err := json.Marshal(request)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification webhook error: status %d", resp.StatusCode)
	}

	return nil
}

package ledger

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

// WalletAdapter implements LedgerProvider against the external wallet service
type WalletAdapter struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewWalletAdapter creates a new wallet adapter
func NewWalletAdapter(baseURL, apiKey string) providers.LedgerProvider {
	return &WalletAdapter{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

// RecordCredit records a revenue-share entry for the provider
func (a *WalletAdapter) RecordCredit(ctx context.Context, credit *entities.LedgerCredit) error {
	body, err := json.Marshal(credit)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v1/credits", bytes.NewBuffer(body))
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

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("wallet service error: status %d", resp.StatusCode)
	}

	return nil
}

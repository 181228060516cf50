package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ledgertypes "github.com/frahmantamala/paylink/internal/core/datamodel/ledger"
	paymentDatamodel "github.com/frahmantamala/paylink/internal/core/datamodel/payment"
	"github.com/frahmantamala/paylink/internal/core/events"
)

// Client mirrors payments into the external transaction ledger. Calls are
// best-effort: the payment record is authoritative.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// MirrorPayment posts the payment state carried by the event. The
// Idempotency-Key makes retries of the same state safe on the ledger side.
func (c *Client) MirrorPayment(ctx context.Context, event *events.PaymentEvent) error {
	req := EntryFromEvent(event)
	if err := req.Validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.ExternalID+":"+string(req.Status))
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}

	var apiResponse ledgertypes.EntryResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info("payment mirrored to ledger",
		"payment_id", req.ExternalID,
		"ledger_entry_id", apiResponse.Data.ID,
		"status", apiResponse.Data.Status)
	return nil
}

// EntryFromEvent maps a payment event to the ledger's entry shape.
func EntryFromEvent(event *events.PaymentEvent) *ledgertypes.EntryRequest {
	return &ledgertypes.EntryRequest{
		ExternalID:    event.PaymentID,
		PaymentLinkID: event.PaymentLinkID,
		MerchantID:    event.MerchantID,
		TxSignature:   event.TxSignature,
		Chain:         event.Chain,
		Amount:        event.Amount,
		Currency:      event.Token,
		Status:        entryStatus(event.Status),
		Confirmations: event.Confirmations,
	}
}

func entryStatus(status string) ledgertypes.EntryStatus {
	switch status {
	case paymentDatamodel.StatusConfirmed:
		return ledgertypes.EntryStatusConfirmed
	case paymentDatamodel.StatusFailed:
		return ledgertypes.EntryStatusFailed
	default:
		return ledgertypes.EntryStatusPending
	}
}

package ledger

import (
	"errors"
)

type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "PENDING"
	EntryStatusConfirmed EntryStatus = "CONFIRMED"
	EntryStatusFailed    EntryStatus = "FAILED"
)

// EntryRequest is the body posted to the ledger for every payment state.
type EntryRequest struct {
	ExternalID    string      `json:"external_id"`
	PaymentLinkID string      `json:"payment_link_id"`
	MerchantID    string      `json:"merchant_id"`
	TxSignature   string      `json:"tx_signature"`
	Chain         string      `json:"chain"`
	Amount        string      `json:"amount"`
	Currency      string      `json:"currency"`
	Status        EntryStatus `json:"status"`
	Confirmations int64       `json:"confirmations"`
}

func (r *EntryRequest) Validate() error {
	if r.ExternalID == "" {
		return errors.New("external_id is required")
	}
	if r.TxSignature == "" {
		return errors.New("tx_signature is required")
	}
	if r.Amount == "" {
		return errors.New("amount is required")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}

type EntryData struct {
	ID         string      `json:"id"`
	ExternalID string      `json:"external_id"`
	Status     EntryStatus `json:"status"`
}

type EntryResponse struct {
	Data EntryData `json:"data"`
}

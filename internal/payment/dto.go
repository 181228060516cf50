package payment

import (
	"github.com/shopspring/decimal"
)

// RecordPaymentRequest is the body of POST /api/v1/payments.
type RecordPaymentRequest struct {
	LinkCode      string          `json:"link_code"`
	TxSignature   string          `json:"tx_signature"`
	Chain         string          `json:"chain"`
	Amount        decimal.Decimal `json:"amount"`
	Token         string          `json:"token"`
	Confirmed     *bool           `json:"confirmed,omitempty"`
	Confirmations *int64          `json:"confirmations,omitempty"`
}

// ToInput applies the entry-point defaults: callers submit after observing
// an on-chain confirmation, so confirmed defaults to true.
func (r *RecordPaymentRequest) ToInput() RecordInput {
	in := RecordInput{
		LinkCode:    r.LinkCode,
		TxSignature: r.TxSignature,
		Chain:       r.Chain,
		Amount:      r.Amount,
		Token:       r.Token,
		Confirmed:   true,
	}
	if r.Confirmed != nil {
		in.Confirmed = *r.Confirmed
	}
	if r.Confirmations != nil {
		in.Confirmations = *r.Confirmations
	}
	return in
}

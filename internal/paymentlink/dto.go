package paymentlink

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/paylink/internal/core/common/validation"
)

type CreateLinkRequest struct {
	Title      string          `json:"title"`
	Amount     decimal.Decimal `json:"amount"`
	Token      string          `json:"token"`
	Chain      string          `json:"chain"`
	IsReusable bool            `json:"is_reusable"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
}

func (r *CreateLinkRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("token", r.Token).Required()
	validator.Field("chain", r.Chain).Required()
	validator.Field("title", r.Title).MaxLength(255)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (r *CreateLinkRequest) ToInput() CreateInput {
	return CreateInput{
		Title:      r.Title,
		Amount:     r.Amount,
		Token:      r.Token,
		Chain:      r.Chain,
		IsReusable: r.IsReusable,
		ExpiresAt:  r.ExpiresAt,
	}
}

// PublicLinkResponse is what a payer sees before paying.
type PublicLinkResponse struct {
	Code       string          `json:"code"`
	Title      string          `json:"title,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Token      string          `json:"token"`
	Chain      string          `json:"chain"`
	IsReusable bool            `json:"is_reusable"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
}

func ToPublicResponse(l *Link) PublicLinkResponse {
	return PublicLinkResponse{
		Code:       l.Code,
		Title:      l.Title,
		Amount:     l.Amount,
		Token:      l.Token,
		Chain:      l.Chain,
		IsReusable: l.IsReusable,
		ExpiresAt:  l.ExpiresAt,
	}
}

package paymentlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/paylink/internal"
	"github.com/frahmantamala/paylink/internal/core/common/random"
	"github.com/frahmantamala/paylink/internal/core/common/validation"
)

const (
	codeLength      = 8
	maxCodeAttempts = 5
)

type Repository interface {
	Create(ctx context.Context, l *Link) error
	GetByCode(ctx context.Context, code string) (*Link, error)
	GetByID(ctx context.Context, id string) (*Link, error)
	IncrementPaymentCount(ctx context.Context, code string, paidAt time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
}

type CreateInput struct {
	Title      string
	Amount     decimal.Decimal
	Token      string
	Chain      string
	IsReusable bool
	ExpiresAt  *time.Time
}

// Service is the payment link registry. It owns the link lifecycle and the
// checks a link must pass before a new payment may be attributed to it.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Create(ctx context.Context, merchantID string, in CreateInput) (*Link, error) {
	now := s.now().UTC()
	if appErr := validation.ValidateLinkInput(in.Amount, in.Token, in.Chain, in.ExpiresAt, now); appErr != nil {
		return nil, appErr
	}

	link := &Link{
		ID:         uuid.NewString(),
		MerchantID: merchantID,
		Title:      strings.TrimSpace(in.Title),
		Amount:     in.Amount,
		Token:      strings.TrimSpace(in.Token),
		Chain:      strings.ToLower(strings.TrimSpace(in.Chain)),
		IsReusable: in.IsReusable,
		IsActive:   true,
		ExpiresAt:  in.ExpiresAt,
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := random.String(random.CodeAlphabet, codeLength)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to generate link code", err)
		}
		link.Code = code

		err = s.repo.Create(ctx, link)
		if err == nil {
			s.logger.Info("payment link created",
				"link_id", link.ID,
				"code", link.Code,
				"merchant_id", merchantID,
				"amount", link.Amount.String(),
				"token", link.Token,
				"chain", link.Chain,
				"is_reusable", link.IsReusable)
			return link, nil
		}
		if !errors.Is(err, ErrDuplicateCode) {
			return nil, fmt.Errorf("failed to create payment link: %w", err)
		}
		s.logger.Warn("payment link code collision, regenerating", "attempt", attempt)
	}

	return nil, apperrors.NewInternalError("could not allocate a unique link code", ErrDuplicateCode)
}

// LookupForPayment resolves a link that may receive a new payment. Checks
// run in order: existence, then expiry, then single-use.
func (s *Service) LookupForPayment(ctx context.Context, code string) (*Link, error) {
	link, err := s.repo.GetByCode(ctx, normalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get payment link: %w", err)
	}
	if !link.IsActive {
		return nil, apperrors.ErrLinkNotFound
	}
	if link.IsExpired(s.now()) {
		return nil, apperrors.ErrLinkExpired
	}
	if link.IsSpent() {
		return nil, apperrors.ErrLinkAlreadyUsed
	}
	return link, nil
}

// IncrementAfterPayment bumps the payment counter and last paid time in one
// atomic update. It does not re-check active or expiry state.
func (s *Service) IncrementAfterPayment(ctx context.Context, code string) error {
	if err := s.repo.IncrementPaymentCount(ctx, normalizeCode(code), s.now().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperrors.ErrLinkNotFound
		}
		return fmt.Errorf("failed to increment payment count: %w", err)
	}
	return nil
}

// Deactivate marks the link inactive. Only the owner may do this.
func (s *Service) Deactivate(ctx context.Context, code, ownerID string) (*Link, error) {
	link, err := s.GetOwned(ctx, code, ownerID)
	if err != nil {
		return nil, err
	}
	if !link.IsActive {
		return link, nil
	}
	if err := s.repo.SetActive(ctx, link.ID, false); err != nil {
		return nil, fmt.Errorf("failed to deactivate payment link: %w", err)
	}
	link.IsActive = false

	s.logger.Info("payment link deactivated", "link_id", link.ID, "code", link.Code, "merchant_id", ownerID)
	return link, nil
}

// GetOwned returns the link when ownerID owns it, regardless of its state.
func (s *Service) GetOwned(ctx context.Context, code, ownerID string) (*Link, error) {
	link, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link.MerchantID != ownerID {
		s.logger.Warn("payment link ownership mismatch", "link_id", link.ID, "caller_id", ownerID)
		return nil, apperrors.ErrForbidden
	}
	return link, nil
}

// GetByCode returns the link regardless of its state.
func (s *Service) GetByCode(ctx context.Context, code string) (*Link, error) {
	link, err := s.repo.GetByCode(ctx, normalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get payment link: %w", err)
	}
	return link, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Link, error) {
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get payment link: %w", err)
	}
	return link, nil
}

// ResolveLinkID maps a code to the link id carried in dashboard tokens.
func (s *Service) ResolveLinkID(ctx context.Context, code string) (string, error) {
	link, err := s.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}
	return link.ID, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

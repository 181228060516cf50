package payment

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
	"github.com/frahmantamala/paylink/internal/core/common/validation"
	"github.com/frahmantamala/paylink/internal/core/events"
	"github.com/frahmantamala/paylink/internal/paymentlink"
)

// Repository is the storage port. InsertUnique must rely on the store's
// unique (tx_signature, chain) constraint and return ErrDuplicate when it
// fires.
type Repository interface {
	InsertUnique(ctx context.Context, p *Payment) error
	FindByCompoundKey(ctx context.Context, txSignature, chain string) (*Payment, error)
	GetByID(ctx context.Context, id string) (*Payment, error)
	ListByLink(ctx context.Context, paymentLinkID string) ([]*Payment, error)
	ListPending(ctx context.Context, limit int) ([]*Payment, error)
	MarkConfirmed(ctx context.Context, id string, confirmations int64, confirmedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id, reason string) (bool, error)
	MarkChecked(ctx context.Context, id string, checkedAt time.Time) error
}

// LinkRegistry is the part of the payment link registry the recorder needs.
type LinkRegistry interface {
	LookupForPayment(ctx context.Context, code string) (*paymentlink.Link, error)
	IncrementAfterPayment(ctx context.Context, code string) error
	GetByCode(ctx context.Context, code string) (*paymentlink.Link, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type RecordInput struct {
	LinkCode      string
	TxSignature   string
	Chain         string
	Amount        decimal.Decimal
	Token         string
	Confirmed     bool
	Confirmations int64
}

// Service records on-chain payments against payment links exactly once per
// (tx_signature, chain).
type Service struct {
	repo      Repository
	links     LinkRegistry
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, links LinkRegistry, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		links:     links,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordPayment validates a payment claim and stores it. Concurrent or
// repeated submissions of the same transaction all receive the first
// stored record.
func (s *Service) RecordPayment(ctx context.Context, in RecordInput) (*Payment, error) {
	in.LinkCode = strings.TrimSpace(in.LinkCode)
	in.TxSignature = strings.TrimSpace(in.TxSignature)
	in.Chain = strings.ToLower(strings.TrimSpace(in.Chain))

	v := validation.NewValidator()
	v.Field("link_code", in.LinkCode).Required()
	v.Field("tx_signature", in.TxSignature).Required().MaxLength(128)
	v.Field("chain", in.Chain).Required()
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}
	if in.Confirmations < 0 {
		return nil, apperrors.NewValidationFieldError("confirmations", "confirmations must not be negative", apperrors.ErrCodeValidationFailed)
	}

	log := s.logger.With("link_code", in.LinkCode, "tx_signature", in.TxSignature, "chain", in.Chain)

	link, err := s.links.LookupForPayment(ctx, in.LinkCode)
	if err != nil {
		if existing := s.replayFor(ctx, in, err); existing != nil {
			log.Info("payment already recorded, returning existing record", "payment_id", existing.ID)
			return existing, nil
		}
		return nil, err
	}

	if appErr := validation.ValidatePaymentClaim(in.Amount, in.Token, in.Chain, link.Amount, link.Token, link.Chain); appErr != nil {
		log.Warn("payment claim rejected", "field", appErr.Field(), "error", appErr.GetDetailedMessage())
		return nil, appErr
	}

	now := s.now().UTC()
	p := &Payment{
		ID:            uuid.NewString(),
		PaymentLinkID: link.ID,
		MerchantID:    link.MerchantID,
		TxSignature:   in.TxSignature,
		Chain:         in.Chain,
		Amount:        in.Amount,
		Token:         link.Token,
		Status:        StatusPending,
		Confirmations: in.Confirmations,
	}
	if in.Confirmed {
		p.Status = StatusConfirmed
		p.ConfirmedAt = &now
	}

	if err := s.repo.InsertUnique(ctx, p); err != nil {
		if !errors.Is(err, ErrDuplicate) {
			log.Error("failed to insert payment", "error", err)
			return nil, apperrors.NewInternalError("failed to record payment", err)
		}

		existing, findErr := s.repo.FindByCompoundKey(ctx, in.TxSignature, in.Chain)
		if findErr != nil {
			log.Error("duplicate payment could not be re-read", "error", findErr)
			return nil, apperrors.NewInternalError("failed to record payment", findErr)
		}
		if existing.PaymentLinkID != link.ID {
			log.Warn("transaction already recorded against another link",
				"payment_id", existing.ID,
				"existing_link_id", existing.PaymentLinkID)
		}
		log.Info("duplicate payment submission resolved to existing record", "payment_id", existing.ID)
		return existing, nil
	}

	if err := s.links.IncrementAfterPayment(ctx, link.Code); err != nil {
		log.Error("failed to increment link payment count", "error", err, "payment_id", p.ID)
	}

	s.publish(ctx, events.NewPaymentRecordedEvent(eventData(p)))
	if p.Status == StatusConfirmed {
		s.publish(ctx, events.NewPaymentConfirmedEvent(eventData(p)))
	}

	log.Info("payment recorded",
		"payment_id", p.ID,
		"link_id", link.ID,
		"amount", p.Amount.String(),
		"status", p.Status)

	return p, nil
}

// replayFor returns the stored payment when a lookup failure is caused by
// the very transaction being resubmitted against the same link.
func (s *Service) replayFor(ctx context.Context, in RecordInput, lookupErr error) *Payment {
	if !errors.Is(lookupErr, apperrors.ErrLinkAlreadyUsed) &&
		!errors.Is(lookupErr, apperrors.ErrLinkExpired) &&
		!errors.Is(lookupErr, apperrors.ErrLinkNotFound) {
		return nil
	}

	existing, err := s.repo.FindByCompoundKey(ctx, in.TxSignature, in.Chain)
	if err != nil {
		return nil
	}
	link, err := s.links.GetByCode(ctx, in.LinkCode)
	if err != nil || link.ID != existing.PaymentLinkID {
		return nil
	}
	return existing
}

// ConfirmPending moves a pending payment to confirmed. It reports false when
// the payment had already left the pending state.
func (s *Service) ConfirmPending(ctx context.Context, p *Payment, confirmations int64) (bool, error) {
	now := s.now().UTC()
	ok, err := s.repo.MarkConfirmed(ctx, p.ID, confirmations, now)
	if err != nil {
		return false, fmt.Errorf("failed to confirm payment: %w", err)
	}
	if !ok {
		return false, nil
	}

	p.Status = StatusConfirmed
	p.Confirmations = confirmations
	p.ConfirmedAt = &now

	s.logger.Info("payment confirmed", "payment_id", p.ID, "confirmations", confirmations)
	s.publish(ctx, events.NewPaymentConfirmedEvent(eventData(p)))
	return true, nil
}

// FailPending moves a pending payment to failed.
func (s *Service) FailPending(ctx context.Context, p *Payment, reason string) (bool, error) {
	ok, err := s.repo.MarkFailed(ctx, p.ID, reason)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	if !ok {
		return false, nil
	}

	p.Status = StatusFailed
	p.FailureReason = &reason

	s.logger.Warn("payment failed on chain", "payment_id", p.ID, "reason", reason)
	s.publish(ctx, events.NewPaymentFailedEvent(eventData(p)))
	return true, nil
}

// MarkChecked records that the chain was asked about p, moving it to the
// back of the pending queue.
func (s *Service) MarkChecked(ctx context.Context, p *Payment) error {
	now := s.now().UTC()
	if err := s.repo.MarkChecked(ctx, p.ID, now); err != nil {
		return fmt.Errorf("failed to mark payment checked: %w", err)
	}
	p.LastCheckedAt = &now
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (s *Service) ListByLink(ctx context.Context, paymentLinkID string) ([]*Payment, error) {
	payments, err := s.repo.ListByLink(ctx, paymentLinkID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]*Payment, error) {
	payments, err := s.repo.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	return payments, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	// handlers may outlive the request that triggered them
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error("failed to publish payment event",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"error", err)
	}
}

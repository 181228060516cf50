package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/frahmantamala/paylink/internal"
	"github.com/frahmantamala/paylink/internal/merchant"
	"github.com/frahmantamala/paylink/internal/payment"
	"github.com/frahmantamala/paylink/internal/paymentlink"
)

// login failure reasons, logged server-side only
const (
	reasonUnknownIdentifier = "unknown_identifier"
	reasonNoValidSession    = "no_valid_session"
	reasonPasswordMismatch  = "password_mismatch"
	reasonLocked            = "locked"
)

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	// FindMostRecentValid returns the newest session by creation time with
	// expires_at > now and is_revoked = false, or ErrSessionNotFound.
	FindMostRecentValid(ctx context.Context, merchantID string, now time.Time) (*Session, error)
	MarkUsed(ctx context.Context, id string, usedAt time.Time, ipAddress, userAgent *string) error
	RevokeAllValid(ctx context.Context, merchantID string, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type MerchantDirectory interface {
	GetByID(ctx context.Context, id string) (*merchant.Merchant, error)
	FindByIdentifier(ctx context.Context, identifier string) (*merchant.Merchant, error)
}

type LinkOwnership interface {
	GetOwned(ctx context.Context, code, ownerID string) (*paymentlink.Link, error)
	GetByID(ctx context.Context, id string) (*paymentlink.Link, error)
}

type PaymentLister interface {
	ListByLink(ctx context.Context, paymentLinkID string) ([]*payment.Payment, error)
}

type TokenIssuer interface {
	GenerateDashboardToken(merchantID, paymentLinkID, sessionID string, expiresAt time.Time) (string, error)
}

// LockoutStore counts failed logins per identifier.
type LockoutStore interface {
	IsLocked(ctx context.Context, key string, now time.Time) (bool, error)
	RecordFailure(ctx context.Context, key string, now time.Time) (locked bool, err error)
	Clear(ctx context.Context, key string) error
}

type LinkOverview struct {
	Link     *paymentlink.Link  `json:"link"`
	Payments []*payment.Payment `json:"payments"`
}

type Service struct {
	sessions  SessionRepository
	merchants MerchantDirectory
	links     LinkOwnership
	payments  PaymentLister
	tokens    TokenIssuer
	lockout   LockoutStore
	cfg       apperrors.DashboardConfig
	logger    *slog.Logger
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewService(
	sessions SessionRepository,
	merchants MerchantDirectory,
	links LinkOwnership,
	payments PaymentLister,
	tokens TokenIssuer,
	cfg apperrors.DashboardConfig,
	logger *slog.Logger,
) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = apperrors.DefaultSessionTTL
	}
	if cfg.PasswordLength <= 0 {
		cfg.PasswordLength = apperrors.DefaultPasswordLength
	}
	if cfg.BCryptCost <= 0 {
		cfg.BCryptCost = apperrors.DefaultDashboardCost
	}
	return &Service{
		sessions:  sessions,
		merchants: merchants,
		links:     links,
		payments:  payments,
		tokens:    tokens,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// SetLockout enables per-identifier login lockout.
func (s *Service) SetLockout(store LockoutStore) {
	s.lockout = store
}

// Issue creates a new session for the link and returns its plaintext
// password. Earlier sessions are left untouched.
func (s *Service) Issue(ctx context.Context, merchantID, linkCode string) (*Credentials, error) {
	link, err := s.links.GetOwned(ctx, linkCode, merchantID)
	if err != nil {
		return nil, err
	}

	m, err := s.merchants.GetByID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, merchant.ErrNotFound) {
			return nil, apperrors.ErrForbidden
		}
		return nil, fmt.Errorf("failed to load merchant: %w", err)
	}

	password, err := GeneratePassword(s.cfg.PasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(password, s.cfg.BCryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session := &Session{
		ID:            uuid.NewString(),
		MerchantID:    merchantID,
		PaymentLinkID: link.ID,
		PasswordHash:  hash,
		ExpiresAt:     now.Add(s.cfg.SessionTTL),
		CreatedAt:     now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create dashboard session: %w", err)
	}

	s.logger.Info("dashboard credentials issued",
		"session_id", session.ID,
		"merchant_id", merchantID,
		"link_id", link.ID,
		"expires_at", session.ExpiresAt)

	return &Credentials{
		Identifier:        m.Identifier,
		TemporaryPassword: password,
		PaymentLinkID:     link.ID,
		ExpiresAt:         session.ExpiresAt,
	}, nil
}

// Login authenticates against the merchant's most recent valid session.
// Every failure surfaces as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in LoginAttempt) (*LoginResult, error) {
	identifier := merchant.NormalizeIdentifier(in.Identifier)
	log := s.logger.With("identifier", identifier, "ip_address", in.IPAddress)
	now := s.now().UTC()

	if s.lockout != nil {
		locked, err := s.lockout.IsLocked(ctx, identifier, now)
		if err != nil {
			log.Error("lockout check failed, continuing", "error", err)
		} else if locked {
			log.Warn("dashboard login rejected", "reason", reasonLocked)
			return nil, apperrors.ErrTooManyAttempts
		}
	}

	m, err := s.merchants.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, merchant.ErrNotFound) {
			s.burnCompare(in.Password)
			return nil, s.rejectLogin(ctx, log, identifier, reasonUnknownIdentifier)
		}
		return nil, fmt.Errorf("failed to resolve merchant: %w", err)
	}

	session, err := s.sessions.FindMostRecentValid(ctx, m.ID, now)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			s.burnCompare(in.Password)
			return nil, s.rejectLogin(ctx, log, identifier, reasonNoValidSession)
		}
		return nil, fmt.Errorf("failed to load dashboard session: %w", err)
	}

	if !passwordMatches(session.PasswordHash, in.Password) {
		return nil, s.rejectLogin(ctx, log.With("session_id", session.ID), identifier, reasonPasswordMismatch)
	}

	if err := s.sessions.MarkUsed(ctx, session.ID, now, optional(in.IPAddress), optional(in.UserAgent)); err != nil {
		log.Error("failed to mark dashboard session used", "error", err, "session_id", session.ID)
	}

	token, err := s.tokens.GenerateDashboardToken(m.ID, session.PaymentLinkID, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dashboard token: %w", err)
	}

	if s.lockout != nil {
		if err := s.lockout.Clear(ctx, identifier); err != nil {
			log.Warn("failed to clear login lockout", "error", err)
		}
	}

	log.Info("dashboard login succeeded", "session_id", session.ID, "link_id", session.PaymentLinkID)

	return &LoginResult{
		AccessToken:   token,
		TokenType:     "Bearer",
		PaymentLinkID: session.PaymentLinkID,
		ExpiresAt:     session.ExpiresAt,
	}, nil
}

func (s *Service) rejectLogin(ctx context.Context, log *slog.Logger, identifier, reason string) error {
	log.Warn("dashboard login rejected", "reason", reason)
	if s.lockout != nil {
		locked, err := s.lockout.RecordFailure(ctx, identifier, s.now().UTC())
		if err != nil {
			log.Error("failed to record login failure", "error", err)
		} else if locked {
			log.Warn("identifier locked after repeated failures")
		}
	}
	return apperrors.ErrInvalidCredentials
}

// burnCompare keeps failure timing close to a real password comparison.
func (s *Service) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		hash, err := hashPassword("paylink-dummy-password", s.cfg.BCryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	if s.dummyHash != "" {
		passwordMatches(s.dummyHash, password)
	}
}

// RevokeAll revokes every currently valid session of the merchant.
// Expired sessions are left as they are.
func (s *Service) RevokeAll(ctx context.Context, merchantID string) (int64, error) {
	n, err := s.sessions.RevokeAllValid(ctx, merchantID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to revoke dashboard sessions: %w", err)
	}
	s.logger.Info("dashboard sessions revoked", "merchant_id", merchantID, "count", n)
	return n, nil
}

// IsSessionActive is consulted on every dashboard request so revocation
// takes effect before the token expires.
func (s *Service) IsSessionActive(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load dashboard session: %w", err)
	}
	return session.IsValidAt(s.now()), nil
}

// PruneExpired deletes sessions that can no longer authorize a login.
func (s *Service) PruneExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune dashboard sessions: %w", err)
	}
	return n, nil
}

// LinkOverview returns the link the dashboard scope is bound to with its
// payments.
func (s *Service) LinkOverview(ctx context.Context, scope apperrors.DashboardScope) (*LinkOverview, error) {
	link, err := s.links.GetByID(ctx, scope.PaymentLinkID)
	if err != nil {
		return nil, err
	}
	if link.MerchantID != scope.MerchantID {
		return nil, apperrors.ErrForbidden
	}

	payments, err := s.payments.ListByLink(ctx, link.ID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*payment.Payment{}
	}
	return &LinkOverview{Link: link, Payments: payments}, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

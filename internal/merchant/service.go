package merchant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/frahmantamala/paylink/internal/core/common/validation"
)

type Repository interface {
	Create(ctx context.Context, m *Merchant) error
	GetByID(ctx context.Context, id string) (*Merchant, error)
	GetByIdentifier(ctx context.Context, identifier string) (*Merchant, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) Create(ctx context.Context, identifier, name string) (*Merchant, error) {
	identifier = NormalizeIdentifier(identifier)
	name = strings.TrimSpace(name)

	v := validation.NewValidator()
	v.Field("identifier", identifier).Required().MinLength(3).MaxLength(64)
	v.Field("name", name).Required().MaxLength(255)
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	m := &Merchant{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Name:       name,
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create merchant: %w", err)
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Merchant, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant by id: %w", err)
	}
	return m, nil
}

// FindByIdentifier resolves an active merchant by its human-facing identifier.
func (s *Service) FindByIdentifier(ctx context.Context, identifier string) (*Merchant, error) {
	m, err := s.repo.GetByIdentifier(ctx, NormalizeIdentifier(identifier))
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant by identifier: %w", err)
	}
	if !m.IsActive {
		return nil, ErrNotFound
	}
	return m, nil
}

func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	organizationserrors "bookwell/internal/organizations/errors"
	"bookwell/internal/organizations/repository"
	"bookwell/internal/organizations/validator"
	"bookwell/pkg/auth"
	"bookwell/pkg/config"
	apperrors "bookwell/pkg/errors"
	"bookwell/pkg/model"
	"bookwell/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

type OrganizationService interface {
	Create(ctx context.Context, org *model.Organization) error
	GetByID(ctx context.Context, id string) (*model.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*model.Organization, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Organization, int64, error)
	Update(ctx context.Context, id string, updates *model.OrganizationUpdate) error
	UpdatePolicy(ctx context.Context, id string, updates *model.PolicyUpdate) error
	Delete(ctx context.Context, id string) error
}

type organizationService struct {
	repo      repository.OrganizationRepository
	validator *validator.OrganizationValidator
	cfg       *config.Config
}

func NewOrganizationService(
	repo repository.OrganizationRepository,
	validator *validator.OrganizationValidator,
	cfg *config.Config,
) OrganizationService {
	return &organizationService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func principal(ctx context.Context) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return auth.Principal{}, apperrors.Unauthorized("Authentication required")
	}
	return p, nil
}

func (s *organizationService) Create(ctx context.Context, org *model.Organization) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if !p.Staff() {
		return apperrors.Forbidden("Insufficient role for this operation")
	}

	s.sanitize(org)

	if err := s.validator.Validate(org); err != nil {
		s.cfg.Log.Warn("Organization validation failed",
			"name", org.Name,
			"slug", org.Slug,
			"error", err,
		)
		return apperrors.Validation("Organization validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.FindBySlug(sessCtx, org.Slug)
		if err != nil && !errors.Is(err, organizationserrors.ErrNotFound) {
			return fmt.Errorf("failed to check for duplicate slug: %w", err)
		}
		if existing != nil {
			return apperrors.Conflict(fmt.Sprintf(
				"Organization with slug %q already exists (id: %s)",
				org.Slug, existing.ID,
			))
		}

		if err := s.repo.Create(sessCtx, org); err != nil {
			if errors.Is(err, organizationserrors.ErrDuplicateSlug) {
				return apperrors.Conflict(fmt.Sprintf("Organization with slug %q already exists", org.Slug))
			}
			return fmt.Errorf("failed to create organization: %w", err)
		}
		return nil
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		s.cfg.Log.Error("Failed to create organization",
			"name", org.Name,
			"slug", org.Slug,
			"error", err,
		)
		return apperrors.Internal("Failed to create organization", err)
	}

	s.cfg.Log.Info("Organization created",
		"id", org.ID,
		"name", org.Name,
		"slug", org.Slug,
	)

	return nil
}

func (s *organizationService) GetByID(ctx context.Context, id string) (*model.Organization, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Organization ID cannot be empty")
	}
	if err := auth.Authorize(p, id); err != nil {
		return nil, err
	}

	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	return org, nil
}

func (s *organizationService) GetBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	if slug == "" {
		return nil, apperrors.InvalidInput("Organization slug cannot be empty")
	}

	org, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, organizationserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Organization")
		}
		s.cfg.Log.Error("Failed to get organization by slug", "slug", slug, "error", err)
		return nil, apperrors.Internal("Failed to retrieve organization", err)
	}

	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(p, org.ID); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *organizationService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Organization, int64, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, 0, err
	}
	if !p.Staff() {
		return nil, 0, apperrors.Forbidden("Insufficient role for this operation")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	count, err := s.repo.Count(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to count organizations", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve organizations", err)
	}

	orgs, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list organizations", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve organizations", err)
	}

	return orgs, count, nil
}

func (s *organizationService) Update(ctx context.Context, id string, updates *model.OrganizationUpdate) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return apperrors.InvalidInput("Organization ID cannot be empty")
	}
	if err := auth.Authorize(p, id, auth.RoleOwner, auth.RoleAdmin); err != nil {
		return err
	}

	updates.Name = sanitizer.SanitizeName(updates.Name)
	updates.Email = sanitizer.SanitizeEmail(updates.Email)
	if updates.Phone != "" {
		updates.Phone = sanitizer.SanitizePhone(updates.Phone)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		return apperrors.Validation("Organization update validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.mapLookupError(err, id)
	}

	if updates.Name != "" {
		org.Name = updates.Name
	}
	if updates.Email != "" {
		org.Email = updates.Email
	}
	if updates.Phone != "" {
		org.Phone = updates.Phone
	}

	if err := s.repo.Update(ctx, id, org); err != nil {
		return s.mapLookupError(err, id)
	}

	s.cfg.Log.Info("Organization updated", "id", id)
	return nil
}

func (s *organizationService) UpdatePolicy(ctx context.Context, id string, updates *model.PolicyUpdate) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return apperrors.InvalidInput("Organization ID cannot be empty")
	}
	if err := auth.Authorize(p, id, auth.RoleOwner, auth.RoleAdmin); err != nil {
		return err
	}

	if err := s.validator.ValidatePolicyUpdate(updates); err != nil {
		return apperrors.Validation("Policy update validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.UpdatePolicy(ctx, id, updates); err != nil {
		return s.mapLookupError(err, id)
	}

	s.cfg.Log.Info("Organization policy updated",
		"id", id,
		"clear_change_hours", updates.ClearChangeHours,
	)
	return nil
}

func (s *organizationService) Delete(ctx context.Context, id string) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return apperrors.InvalidInput("Organization ID cannot be empty")
	}
	if err := auth.Authorize(p, id, auth.RoleOwner); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapLookupError(err, id)
	}

	s.cfg.Log.Info("Organization deleted", "id", id)
	return nil
}

func (s *organizationService) sanitize(org *model.Organization) {
	org.Name = sanitizer.SanitizeName(org.Name)
	org.Slug = strings.ToLower(strings.TrimSpace(org.Slug))
	org.Email = sanitizer.SanitizeEmail(org.Email)
	if org.Phone != "" {
		org.Phone = sanitizer.SanitizePhone(org.Phone)
	}
}

func (s *organizationService) mapLookupError(err error, id string) error {
	if errors.Is(err, organizationserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Organization", id)
	}
	if errors.Is(err, organizationserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid organization ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	s.cfg.Log.Error("Organization repository error", "id", id, "error", err)
	return apperrors.Internal("Failed to access organization", err)
}

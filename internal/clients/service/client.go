package service

import (
	"context"
	"errors"
	"fmt"

	clientserrors "bookwell/internal/clients/errors"
	"bookwell/internal/clients/repository"
	"bookwell/internal/clients/validator"
	"bookwell/pkg/auth"
	"bookwell/pkg/config"
	apperrors "bookwell/pkg/errors"
	"bookwell/pkg/model"
	"bookwell/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

type ClientService interface {
	Create(ctx context.Context, client *model.Client) error
	GetByID(ctx context.Context, id string) (*model.Client, error)
	GetByOrganization(ctx context.Context, orgID string, limit int, offset int64) ([]*model.Client, int64, error)
	Update(ctx context.Context, id string, updates *model.ClientUpdate) error
	Delete(ctx context.Context, id string) error

	RenewAllowance(ctx context.Context, id string, renewal *model.AllowanceRenewal) (*model.Client, error)
}

type clientService struct {
	repo      repository.ClientRepository
	validator *validator.ClientValidator
	cfg       *config.Config
}

func NewClientService(
	repo repository.ClientRepository,
	validator *validator.ClientValidator,
	cfg *config.Config,
) ClientService {
	return &clientService{
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

func (s *clientService) Create(ctx context.Context, client *model.Client) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if err := auth.Authorize(p, client.OrganizationID, auth.RoleOwner, auth.RoleAdmin); err != nil {
		return err
	}

	s.sanitize(client)

	if err := s.validator.Validate(client); err != nil {
		s.cfg.Log.Warn("Client validation failed",
			"email", client.Email,
			"organization_id", client.OrganizationID,
			"error", err,
		)
		return apperrors.Validation("Client validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.FindByOrgAndEmail(sessCtx, client.OrganizationID, client.Email)
		if err != nil && !errors.Is(err, clientserrors.ErrNotFound) {
			return fmt.Errorf("failed to check for duplicate email: %w", err)
		}
		if existing != nil {
			return apperrors.Conflict(fmt.Sprintf(
				"Client with email %q already exists in this organization (id: %s)",
				client.Email, existing.ID,
			))
		}

		if err := s.repo.Create(sessCtx, client); err != nil {
			if errors.Is(err, clientserrors.ErrDuplicateEmail) {
				return apperrors.Conflict(fmt.Sprintf("Client with email %q already exists in this organization", client.Email))
			}
			return fmt.Errorf("failed to create client: %w", err)
		}
		return nil
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		s.cfg.Log.Error("Failed to create client",
			"email", client.Email,
			"organization_id", client.OrganizationID,
			"error", err,
		)
		return apperrors.Internal("Failed to create client", err)
	}

	s.cfg.Log.Info("Client created",
		"id", client.ID,
		"organization_id", client.OrganizationID,
	)
	return nil
}

func (s *clientService) GetByID(ctx context.Context, id string) (*model.Client, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Client ID cannot be empty")
	}

	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	if err := auth.Authorize(p, client.OrganizationID); err != nil {
		return nil, err
	}

	// Clients can only read their own record; staff can read any record
	// in the organization.
	if !p.Staff() && client.UserID != p.UserID {
		return nil, apperrors.NotFound("Client")
	}

	return client, nil
}

func (s *clientService) GetByOrganization(ctx context.Context, orgID string, limit int, offset int64) ([]*model.Client, int64, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := auth.Authorize(p, orgID, auth.RoleOwner, auth.RoleAdmin); err != nil {
		return nil, 0, err
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	count, err := s.repo.CountByOrganization(ctx, orgID)
	if err != nil {
		s.cfg.Log.Error("Failed to count clients", "organization_id", orgID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve clients", err)
	}

	clients, err := s.repo.FindByOrganization(ctx, orgID, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list clients", "organization_id", orgID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve clients", err)
	}

	return clients, count, nil
}

func (s *clientService) Update(ctx context.Context, id string, updates *model.ClientUpdate) error {
	client, err := s.getAuthorizedForWrite(ctx, id)
	if err != nil {
		return err
	}

	updates.Name = sanitizer.SanitizeName(updates.Name)
	updates.Email = sanitizer.SanitizeEmail(updates.Email)
	updates.Notes = sanitizer.SanitizeNotes(updates.Notes)
	if updates.Phone != "" {
		updates.Phone = sanitizer.SanitizePhone(updates.Phone)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		return apperrors.Validation("Client update validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if updates.Email != "" {
		client.Email = updates.Email
	}
	if updates.Name != "" {
		client.Name = updates.Name
	}
	if updates.Phone != "" {
		client.Phone = updates.Phone
	}
	if updates.Notes != "" {
		client.Notes = updates.Notes
	}
	if updates.SessionAllowance != nil {
		client.SessionAllowance = updates.SessionAllowance
	}

	if err := s.repo.Update(ctx, id, client); err != nil {
		if errors.Is(err, clientserrors.ErrDuplicateEmail) {
			return apperrors.Conflict(fmt.Sprintf("Client with email %q already exists in this organization", client.Email))
		}
		return s.mapLookupError(err, id)
	}

	s.cfg.Log.Info("Client updated", "id", id)
	return nil
}

func (s *clientService) Delete(ctx context.Context, id string) error {
	if _, err := s.getAuthorizedForWrite(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapLookupError(err, id)
	}

	s.cfg.Log.Info("Client deleted", "id", id)
	return nil
}

// RenewAllowance adds sessions to a limited allowance inside a
// transaction so concurrent renewals cannot lose increments. An
// unlimited (nil) allowance stays unlimited.
func (s *clientService) RenewAllowance(ctx context.Context, id string, renewal *model.AllowanceRenewal) (*model.Client, error) {
	if _, err := s.getAuthorizedForWrite(ctx, id); err != nil {
		return nil, err
	}

	if err := s.validator.ValidateRenewal(renewal); err != nil {
		return nil, apperrors.Validation("Allowance renewal validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	var updated *model.Client
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		client, err := s.repo.FindByID(sessCtx, id)
		if err != nil {
			return err
		}

		if client.SessionAllowance != nil {
			next := *client.SessionAllowance + renewal.SessionsToAdd
			client.SessionAllowance = &next
			if err := s.repo.UpdateAllowance(sessCtx, id, client.SessionAllowance); err != nil {
				return err
			}
		}

		updated = client
		return nil
	})

	if err != nil {
		return nil, s.mapLookupError(err, id)
	}

	if updated.SessionAllowance == nil {
		s.cfg.Log.Info("Allowance renewal skipped, client is unlimited", "id", id)
	} else {
		s.cfg.Log.Info("Allowance renewed",
			"id", id,
			"sessions_added", renewal.SessionsToAdd,
			"new_allowance", *updated.SessionAllowance,
		)
	}
	return updated, nil
}

func (s *clientService) getAuthorizedForWrite(ctx context.Context, id string) (*model.Client, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Client ID cannot be empty")
	}

	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	if err := auth.Authorize(p, client.OrganizationID, auth.RoleOwner, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) sanitize(client *model.Client) {
	client.Name = sanitizer.SanitizeName(client.Name)
	client.Email = sanitizer.SanitizeEmail(client.Email)
	client.Notes = sanitizer.SanitizeNotes(client.Notes)
	if client.Phone != "" {
		client.Phone = sanitizer.SanitizePhone(client.Phone)
	}
}

func (s *clientService) mapLookupError(err error, id string) error {
	if errors.Is(err, clientserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Client", id)
	}
	if errors.Is(err, clientserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid client ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	s.cfg.Log.Error("Client repository error", "id", id, "error", err)
	return apperrors.Internal("Failed to access client", err)
}

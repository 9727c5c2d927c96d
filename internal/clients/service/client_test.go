package service

import (
	"context"
	"testing"
	"time"

	"bookwell/internal/clients/validator"
	"bookwell/pkg/auth"
	"bookwell/pkg/config"
	mongotx "bookwell/pkg/db/mongo"
	apperrors "bookwell/pkg/errors"
	"bookwell/pkg/logger"
	"bookwell/pkg/model"
)

const (
	testOrgID    = "64a0000000000000000000b1"
	testClientID = "64a0000000000000000000b2"
)

// Mock repository for testing
type mockClientRepository struct {
	createFunc             func(ctx context.Context, client *model.Client) error
	findByIDFunc           func(ctx context.Context, id string) (*model.Client, error)
	findByOrgAndEmailFunc  func(ctx context.Context, orgID, email string) (*model.Client, error)
	findByOrganizationFunc func(ctx context.Context, orgID string, limit int, offset int64) ([]*model.Client, error)
	countFunc              func(ctx context.Context, orgID string) (int64, error)
	updateFunc             func(ctx context.Context, id string, client *model.Client) error
	updateAllowanceFunc    func(ctx context.Context, id string, allowance *int) error
	deleteFunc             func(ctx context.Context, id string) error
}

func (m *mockClientRepository) Create(ctx context.Context, client *model.Client) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, client)
	}
	client.ID = testClientID
	return nil
}

func (m *mockClientRepository) FindByID(ctx context.Context, id string) (*model.Client, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Client{ID: testClientID, OrganizationID: testOrgID}, nil
}

func (m *mockClientRepository) FindByOrgAndEmail(ctx context.Context, orgID, email string) (*model.Client, error) {
	if m.findByOrgAndEmailFunc != nil {
		return m.findByOrgAndEmailFunc(ctx, orgID, email)
	}
	return nil, nil
}

func (m *mockClientRepository) FindByOrganization(ctx context.Context, orgID string, limit int, offset int64) ([]*model.Client, error) {
	if m.findByOrganizationFunc != nil {
		return m.findByOrganizationFunc(ctx, orgID, limit, offset)
	}
	return []*model.Client{}, nil
}

func (m *mockClientRepository) CountByOrganization(ctx context.Context, orgID string) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, orgID)
	}
	return 0, nil
}

func (m *mockClientRepository) Update(ctx context.Context, id string, client *model.Client) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, client)
	}
	return nil
}

func (m *mockClientRepository) UpdateAllowance(ctx context.Context, id string, allowance *int) error {
	if m.updateAllowanceFunc != nil {
		return m.updateAllowanceFunc(ctx, id, allowance)
	}
	return nil
}

func (m *mockClientRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockClientRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

func newTestService(repo *mockClientRepository) ClientService {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})

	return NewClientService(repo, validator.NewClientValidator(), &config.Config{
		Log:         log,
		ReadTimeout: 5 * time.Second,
	})
}

func adminCtx() context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{
		UserID:         "staff-1",
		OrganizationID: testOrgID,
		Role:           auth.RoleAdmin,
	})
}

func TestRenewAllowance_AddsToLimited(t *testing.T) {
	allowance := 2
	var persisted *int
	repo := &mockClientRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Client, error) {
			a := allowance
			return &model.Client{
				ID:               testClientID,
				OrganizationID:   testOrgID,
				SessionAllowance: &a,
			}, nil
		},
		updateAllowanceFunc: func(ctx context.Context, id string, a *int) error {
			persisted = a
			return nil
		},
	}
	service := newTestService(repo)

	updated, err := service.RenewAllowance(adminCtx(), testClientID, &model.AllowanceRenewal{SessionsToAdd: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.SessionAllowance == nil || *updated.SessionAllowance != 12 {
		t.Errorf("expected allowance 12, got %v", updated.SessionAllowance)
	}
	if persisted == nil || *persisted != 12 {
		t.Errorf("expected 12 persisted, got %v", persisted)
	}
}

func TestRenewAllowance_UnlimitedStaysUnlimited(t *testing.T) {
	updateCalled := false
	repo := &mockClientRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Client, error) {
			return &model.Client{
				ID:             testClientID,
				OrganizationID: testOrgID,
			}, nil
		},
		updateAllowanceFunc: func(ctx context.Context, id string, a *int) error {
			updateCalled = true
			return nil
		},
	}
	service := newTestService(repo)

	updated, err := service.RenewAllowance(adminCtx(), testClientID, &model.AllowanceRenewal{SessionsToAdd: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.SessionAllowance != nil {
		t.Errorf("expected allowance to stay nil, got %d", *updated.SessionAllowance)
	}
	if updateCalled {
		t.Errorf("unlimited clients must not be written during renewal")
	}
}

func TestRenewAllowance_RejectsNonPositive(t *testing.T) {
	service := newTestService(&mockClientRepository{})

	_, err := service.RenewAllowance(adminCtx(), testClientID, &model.AllowanceRenewal{SessionsToAdd: 0})
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got: %v", err)
	}
}

func TestCreate_DuplicateEmailConflict(t *testing.T) {
	repo := &mockClientRepository{
		findByOrgAndEmailFunc: func(ctx context.Context, orgID, email string) (*model.Client, error) {
			return &model.Client{ID: "64a0000000000000000000b3", Email: email}, nil
		},
	}
	service := newTestService(repo)

	err := service.Create(adminCtx(), &model.Client{
		OrganizationID: testOrgID,
		Name:           "Dana",
		Email:          "dana@example.com",
	})
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT, got: %v", err)
	}
}

func TestGetByID_ClientReadsOwnRecordOnly(t *testing.T) {
	repo := &mockClientRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Client, error) {
			return &model.Client{
				ID:             testClientID,
				OrganizationID: testOrgID,
				UserID:         "user-1",
			}, nil
		},
	}
	service := newTestService(repo)

	owner := auth.WithPrincipal(context.Background(), auth.Principal{
		UserID:         "user-1",
		OrganizationID: testOrgID,
		Role:           auth.RoleClient,
	})
	if _, err := service.GetByID(owner, testClientID); err != nil {
		t.Fatalf("owner should read their record, got: %v", err)
	}

	stranger := auth.WithPrincipal(context.Background(), auth.Principal{
		UserID:         "user-2",
		OrganizationID: testOrgID,
		Role:           auth.RoleClient,
	})
	_, err := service.GetByID(stranger, testClientID)
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for another client's record, got: %v", err)
	}
}

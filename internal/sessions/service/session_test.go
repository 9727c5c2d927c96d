package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookwell/internal/sessions/validator"
	"bookwell/pkg/auth"
	"bookwell/pkg/config"
	mongotx "bookwell/pkg/db/mongo"
	apperrors "bookwell/pkg/errors"
	"bookwell/pkg/logger"
	"bookwell/pkg/model"
)

const (
	testOrgID     = "64a0000000000000000000c1"
	testSessionID = "64a0000000000000000000c2"
)

// Mock repository for testing
type mockSessionRepository struct {
	createFunc         func(ctx context.Context, session *model.ServiceSession) error
	findByIDFunc       func(ctx context.Context, id string) (*model.ServiceSession, error)
	findByOrgFunc      func(ctx context.Context, orgID string, limit int, offset int64) ([]*model.ServiceSession, error)
	countByOrgFunc     func(ctx context.Context, orgID string) (int64, error)
	updateFunc         func(ctx context.Context, id string, session *model.ServiceSession) error
	deleteFunc         func(ctx context.Context, id string) error
	addTimeSlotFunc    func(ctx context.Context, id string, slot model.TimeSlotTemplate) error
	removeTimeSlotFunc func(ctx context.Context, id string, slotID string) error

	deleted []string
}

func (m *mockSessionRepository) Create(ctx context.Context, session *model.ServiceSession) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, session)
	}
	session.ID = testSessionID
	return nil
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.ServiceSession, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.ServiceSession{
		ID:             testSessionID,
		OrganizationID: testOrgID,
		Name:           "Morning Yoga",
		Slots:          10,
		IsActive:       true,
	}, nil
}

func (m *mockSessionRepository) FindByOrganization(ctx context.Context, orgID string, limit int, offset int64) ([]*model.ServiceSession, error) {
	if m.findByOrgFunc != nil {
		return m.findByOrgFunc(ctx, orgID, limit, offset)
	}
	return []*model.ServiceSession{}, nil
}

func (m *mockSessionRepository) CountByOrganization(ctx context.Context, orgID string) (int64, error) {
	if m.countByOrgFunc != nil {
		return m.countByOrgFunc(ctx, orgID)
	}
	return 0, nil
}

func (m *mockSessionRepository) Update(ctx context.Context, id string, session *model.ServiceSession) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, session)
	}
	return nil
}

func (m *mockSessionRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockSessionRepository) AddTimeSlot(ctx context.Context, id string, slot model.TimeSlotTemplate) error {
	if m.addTimeSlotFunc != nil {
		return m.addTimeSlotFunc(ctx, id, slot)
	}
	return nil
}

func (m *mockSessionRepository) RemoveTimeSlot(ctx context.Context, id string, slotID string) error {
	if m.removeTimeSlotFunc != nil {
		return m.removeTimeSlotFunc(ctx, id, slotID)
	}
	return nil
}

func (m *mockSessionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockBookingCounter struct {
	countFunc func(ctx context.Context, sessionID string, start, end time.Time) (int64, error)
}

func (m *mockBookingCounter) CountActiveBySlot(ctx context.Context, sessionID string, start, end time.Time) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, sessionID, start, end)
	}
	return 0, nil
}

type mockBookingRemover struct {
	deleteFunc func(ctx context.Context, sessionID string) (int64, error)

	removed []string
}

func (m *mockBookingRemover) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	m.removed = append(m.removed, sessionID)
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, sessionID)
	}
	return 0, nil
}

func newTestService(repo *mockSessionRepository, counter *mockBookingCounter, remover *mockBookingRemover) SessionService {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})

	return NewSessionService(repo, counter, remover, validator.NewSessionValidator(log), &config.Config{
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

func TestDelete_CascadesToBookings(t *testing.T) {
	repo := &mockSessionRepository{}
	remover := &mockBookingRemover{
		deleteFunc: func(ctx context.Context, sessionID string) (int64, error) {
			return 3, nil
		},
	}
	service := newTestService(repo, &mockBookingCounter{}, remover)

	if err := service.Delete(adminCtx(), testSessionID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.deleted) != 1 || repo.deleted[0] != testSessionID {
		t.Errorf("expected session %s deleted, got %v", testSessionID, repo.deleted)
	}
	if len(remover.removed) != 1 || remover.removed[0] != testSessionID {
		t.Errorf("expected bookings removed for session %s, got %v", testSessionID, remover.removed)
	}
}

func TestDelete_CascadeFailureSurfaces(t *testing.T) {
	repo := &mockSessionRepository{}
	remover := &mockBookingRemover{
		deleteFunc: func(ctx context.Context, sessionID string) (int64, error) {
			return 0, errors.New("write concern error")
		},
	}
	service := newTestService(repo, &mockBookingCounter{}, remover)

	err := service.Delete(adminCtx(), testSessionID)
	if !apperrors.IsCode(err, apperrors.CodeInternal) {
		t.Fatalf("expected %s, got %v", apperrors.CodeInternal, err)
	}
}

func TestDelete_MemberRoleForbidden(t *testing.T) {
	repo := &mockSessionRepository{}
	remover := &mockBookingRemover{}
	ctx := auth.WithPrincipal(context.Background(), auth.Principal{
		UserID:         "user-1",
		OrganizationID: testOrgID,
		Role:           auth.RoleClient,
	})

	err := newTestService(repo, &mockBookingCounter{}, remover).Delete(ctx, testSessionID)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected %s, got %v", apperrors.CodeForbidden, err)
	}
	if len(repo.deleted) != 0 || len(remover.removed) != 0 {
		t.Errorf("expected no deletions on forbidden request, got %v / %v", repo.deleted, remover.removed)
	}
}

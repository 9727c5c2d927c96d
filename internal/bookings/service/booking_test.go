package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bookwell/internal/bookings/repository"
	"bookwell/internal/bookings/validator"
	"bookwell/pkg/auth"
	"bookwell/pkg/config"
	mongotx "bookwell/pkg/db/mongo"
	apperrors "bookwell/pkg/errors"
	"bookwell/pkg/events"
	"bookwell/pkg/interval"
	"bookwell/pkg/logger"
	"bookwell/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	testOrgID     = "64a0000000000000000000a1"
	testSessionID = "64a0000000000000000000a2"
	testSpaceID   = "64a0000000000000000000a3"
	testClientID  = "64a0000000000000000000a4"
	testBookingID = "64a0000000000000000000a5"
)

// Mock repository for testing
type mockBookingRepository struct {
	createFunc                 func(ctx context.Context, booking *model.Booking) error
	findByIDFunc               func(ctx context.Context, id string) (*model.Booking, error)
	findByOrganizationFunc     func(ctx context.Context, orgID string, filter repository.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	countByOrganizationFunc    func(ctx context.Context, orgID string, filter repository.BookingFilter) (int64, error)
	updateStatusFunc           func(ctx context.Context, id string, status model.BookingStatus) error
	setCheckedInFunc           func(ctx context.Context, id string, at time.Time) error
	countActiveBySlotFunc      func(ctx context.Context, sessionID string, start, end time.Time) (int64, error)
	countActiveOverlappingFunc func(ctx context.Context, spaceID string, start, end time.Time) (int64, error)
	countActiveByClientFunc    func(ctx context.Context, orgID, clientID string) (int64, error)
	findTodayByClientFunc      func(ctx context.Context, orgID, clientID string, dayStart, dayEnd time.Time) ([]*model.Booking, error)
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	booking.ID = testBookingID
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockBookingRepository) FindByOrganization(ctx context.Context, orgID string, filter repository.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	if m.findByOrganizationFunc != nil {
		return m.findByOrganizationFunc(ctx, orgID, filter, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) CountByOrganization(ctx context.Context, orgID string, filter repository.BookingFilter) (int64, error) {
	if m.countByOrganizationFunc != nil {
		return m.countByOrganizationFunc(ctx, orgID, filter)
	}
	return 0, nil
}

func (m *mockBookingRepository) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockBookingRepository) SetCheckedIn(ctx context.Context, id string, at time.Time) error {
	if m.setCheckedInFunc != nil {
		return m.setCheckedInFunc(ctx, id, at)
	}
	return nil
}

func (m *mockBookingRepository) CountActiveBySlot(ctx context.Context, sessionID string, start, end time.Time) (int64, error) {
	if m.countActiveBySlotFunc != nil {
		return m.countActiveBySlotFunc(ctx, sessionID, start, end)
	}
	return 0, nil
}

func (m *mockBookingRepository) CountActiveOverlapping(ctx context.Context, spaceID string, start, end time.Time) (int64, error) {
	if m.countActiveOverlappingFunc != nil {
		return m.countActiveOverlappingFunc(ctx, spaceID, start, end)
	}
	return 0, nil
}

func (m *mockBookingRepository) CountActiveByClient(ctx context.Context, orgID, clientID string) (int64, error) {
	if m.countActiveByClientFunc != nil {
		return m.countActiveByClientFunc(ctx, orgID, clientID)
	}
	return 0, nil
}

func (m *mockBookingRepository) FindActiveIntervalsBySpace(ctx context.Context, spaceID string, from, to time.Time) ([]interval.Interval, error) {
	return []interval.Interval{}, nil
}

func (m *mockBookingRepository) FindTodayByClient(ctx context.Context, orgID, clientID string, dayStart, dayEnd time.Time) ([]*model.Booking, error) {
	if m.findTodayByClientFunc != nil {
		return m.findTodayByClientFunc(ctx, orgID, clientID, dayStart, dayEnd)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockLockRepository struct {
	createFunc func(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error)
	deleted    []string
}

func (m *mockLockRepository) Create(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockLockRepository) Delete(ctx context.Context, lockID string) error {
	m.deleted = append(m.deleted, lockID)
	return nil
}

type mockSessionResolver struct {
	findFunc func(ctx context.Context, id string) (*model.ServiceSession, error)
}

func (m *mockSessionResolver) FindByID(ctx context.Context, id string) (*model.ServiceSession, error) {
	return m.findFunc(ctx, id)
}

type mockSpaceResolver struct {
	findFunc func(ctx context.Context, id string) (*model.Space, error)
}

func (m *mockSpaceResolver) FindByID(ctx context.Context, id string) (*model.Space, error) {
	return m.findFunc(ctx, id)
}

type mockClientResolver struct {
	findFunc func(ctx context.Context, id string) (*model.Client, error)
}

func (m *mockClientResolver) FindByID(ctx context.Context, id string) (*model.Client, error) {
	return m.findFunc(ctx, id)
}

type mockOrgResolver struct {
	findFunc func(ctx context.Context, id string) (*model.Organization, error)
}

func (m *mockOrgResolver) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	return m.findFunc(ctx, id)
}

type mockPublisher struct {
	created   []events.BookingEvent
	cancelled []events.BookingEvent
	checkedIn []events.BookingEvent
}

func (m *mockPublisher) BookingCreated(_ context.Context, evt events.BookingEvent) {
	m.created = append(m.created, evt)
}

func (m *mockPublisher) BookingCancelled(_ context.Context, evt events.BookingEvent) {
	m.cancelled = append(m.cancelled, evt)
}

func (m *mockPublisher) BookingCheckedIn(_ context.Context, evt events.BookingEvent) {
	m.checkedIn = append(m.checkedIn, evt)
}

func (m *mockPublisher) Close() error { return nil }

type mockSealer struct{}

func (mockSealer) CreateToken(bookingID, clientID string) (string, error) {
	return bookingID + "|" + clientID, nil
}

func (mockSealer) ParseToken(token string) (string, string, error) {
	parts := strings.SplitN(token, "|", 2)
	if len(parts) != 2 {
		return "", "", errors.New("malformed token")
	}
	return parts[0], parts[1], nil
}

type testFixture struct {
	service   *bookingService
	repo      *mockBookingRepository
	locks     *mockLockRepository
	publisher *mockPublisher
	now       time.Time
	slotStart time.Time
	slotEnd   time.Time
}

// newFixture wires a service around a Monday 10:00-11:00 session slot
// one week out, with all collaborators healthy by default.
func newFixture() *testFixture {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	slotStart := now.AddDate(0, 0, 7).Add(1 * time.Hour)
	slotEnd := slotStart.Add(1 * time.Hour)

	cfg := &config.Config{
		Log:            log,
		BookingLockTTL: 10 * time.Second,
	}

	f := &testFixture{
		repo:      &mockBookingRepository{},
		locks:     &mockLockRepository{},
		publisher: &mockPublisher{},
		now:       now,
		slotStart: slotStart,
		slotEnd:   slotEnd,
	}

	sessions := &mockSessionResolver{
		findFunc: func(ctx context.Context, id string) (*model.ServiceSession, error) {
			return &model.ServiceSession{
				ID:             testSessionID,
				OrganizationID: testOrgID,
				Name:           "Morning Flow",
				Slots:          2,
				IsActive:       true,
				Timetable: []model.TimeSlotTemplate{
					{
						ID:        "tpl-1",
						DayOfWeek: int(slotStart.Weekday()),
						StartTime: slotStart.Format("15:04"),
						EndTime:   slotEnd.Format("15:04"),
					},
				},
			}, nil
		},
	}
	spaces := &mockSpaceResolver{
		findFunc: func(ctx context.Context, id string) (*model.Space, error) {
			return &model.Space{
				ID:             testSpaceID,
				OrganizationID: testOrgID,
				Name:           "Court 1",
				Capacity:       1,
				IsActive:       true,
			}, nil
		},
	}
	clients := &mockClientResolver{
		findFunc: func(ctx context.Context, id string) (*model.Client, error) {
			return &model.Client{
				ID:             testClientID,
				OrganizationID: testOrgID,
				UserID:         "user-1",
				Name:           "Dana",
			}, nil
		},
	}
	orgs := &mockOrgResolver{
		findFunc: func(ctx context.Context, id string) (*model.Organization, error) {
			return &model.Organization{
				ID:   testOrgID,
				Name: "Studio One",
			}, nil
		},
	}

	f.service = &bookingService{
		repo:      f.repo,
		lockRepo:  f.locks,
		validator: validator.NewBookingValidator(),
		sessions:  sessions,
		spaces:    spaces,
		clients:   clients,
		orgs:      orgs,
		sealer:    mockSealer{},
		publisher: f.publisher,
		cfg:       cfg,
		now:       func() time.Time { return now },
	}

	return f
}

func staffCtx() context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{
		UserID:         "staff-1",
		OrganizationID: testOrgID,
		Role:           auth.RoleAdmin,
	})
}

func clientCtx(userID string) context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{
		UserID:         userID,
		OrganizationID: testOrgID,
		Role:           auth.RoleClient,
	})
}

func sessionInput(f *testFixture) *model.BookingInput {
	return &model.BookingInput{
		SessionID: testSessionID,
		ClientID:  testClientID,
		StartTime: f.slotStart,
		EndTime:   f.slotEnd,
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if !apperrors.IsCode(err, code) {
		t.Fatalf("expected code %s, got: %v", code, err)
	}
}

func TestCreate_SessionSlot(t *testing.T) {
	f := newFixture()

	booking, err := f.service.Create(staffCtx(), sessionInput(f))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != model.StatusConfirmed {
		t.Errorf("expected status CONFIRMED, got %s", booking.Status)
	}
	if booking.OrganizationID != testOrgID {
		t.Errorf("expected organization resolved from the session, got %q", booking.OrganizationID)
	}
	if len(f.publisher.created) != 1 {
		t.Fatalf("expected 1 created event, got %d", len(f.publisher.created))
	}
	if f.publisher.created[0].BookingID != testBookingID {
		t.Errorf("event carries wrong booking id: %s", f.publisher.created[0].BookingID)
	}
	if len(f.locks.deleted) != 1 {
		t.Errorf("expected slot lock to be released, got %d deletions", len(f.locks.deleted))
	}
}

func TestCreate_SessionCapacityFull(t *testing.T) {
	f := newFixture()
	f.repo.countActiveBySlotFunc = func(ctx context.Context, sessionID string, start, end time.Time) (int64, error) {
		return 2, nil
	}

	_, err := f.service.Create(staffCtx(), sessionInput(f))
	assertCode(t, err, apperrors.CodeCapacityFull)

	if len(f.publisher.created) != 0 {
		t.Errorf("no event should be published for a rejected booking")
	}
	if len(f.locks.deleted) != 1 {
		t.Errorf("lock must be released even when admission fails")
	}
}

func TestCreate_OtherSlotUnaffected(t *testing.T) {
	f := newFixture()
	busyStart := f.slotStart
	f.repo.countActiveBySlotFunc = func(ctx context.Context, sessionID string, start, end time.Time) (int64, error) {
		if start.Equal(busyStart) {
			return 2, nil
		}
		return 0, nil
	}

	// Same weekday one week later projects to a distinct occurrence.
	input := sessionInput(f)
	input.StartTime = f.slotStart.AddDate(0, 0, 7)
	input.EndTime = f.slotEnd.AddDate(0, 0, 7)

	if _, err := f.service.Create(staffCtx(), input); err != nil {
		t.Fatalf("booking a different occurrence should succeed, got: %v", err)
	}
}

func TestCreate_SlotNotInTimetable(t *testing.T) {
	f := newFixture()

	input := sessionInput(f)
	input.StartTime = f.slotStart.Add(30 * time.Minute)
	input.EndTime = f.slotEnd.Add(30 * time.Minute)

	_, err := f.service.Create(staffCtx(), input)
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestCreate_ExactlyOneResource(t *testing.T) {
	f := newFixture()

	both := sessionInput(f)
	both.SpaceID = testSpaceID
	_, err := f.service.Create(staffCtx(), both)
	assertCode(t, err, apperrors.CodeValidation)

	neither := sessionInput(f)
	neither.SessionID = ""
	_, err = f.service.Create(staffCtx(), neither)
	assertCode(t, err, apperrors.CodeValidation)
}

func TestCreate_AllowanceExhausted(t *testing.T) {
	f := newFixture()
	allowance := 3
	f.service.clients = &mockClientResolver{
		findFunc: func(ctx context.Context, id string) (*model.Client, error) {
			return &model.Client{
				ID:               testClientID,
				OrganizationID:   testOrgID,
				UserID:           "user-1",
				SessionAllowance: &allowance,
			}, nil
		},
	}
	f.service.orgs = &mockOrgResolver{
		findFunc: func(ctx context.Context, id string) (*model.Organization, error) {
			return &model.Organization{ID: testOrgID, RequireMembership: true}, nil
		},
	}
	f.repo.countActiveByClientFunc = func(ctx context.Context, orgID, clientID string) (int64, error) {
		return 3, nil
	}

	_, err := f.service.Create(staffCtx(), sessionInput(f))
	assertCode(t, err, apperrors.CodeAllowanceExhausted)

	// A cancellation frees one active booking; the same request now admits.
	f.repo.countActiveByClientFunc = func(ctx context.Context, orgID, clientID string) (int64, error) {
		return 2, nil
	}
	if _, err := f.service.Create(staffCtx(), sessionInput(f)); err != nil {
		t.Fatalf("expected admission after a slot freed up, got: %v", err)
	}
}

func TestCreate_AllowanceIgnoredWithoutMembership(t *testing.T) {
	f := newFixture()
	allowance := 0
	f.service.clients = &mockClientResolver{
		findFunc: func(ctx context.Context, id string) (*model.Client, error) {
			return &model.Client{
				ID:               testClientID,
				OrganizationID:   testOrgID,
				UserID:           "user-1",
				SessionAllowance: &allowance,
			}, nil
		},
	}

	if _, err := f.service.Create(staffCtx(), sessionInput(f)); err != nil {
		t.Fatalf("allowance must not gate bookings when membership is not required, got: %v", err)
	}
}

func TestCreate_UnlimitedClient(t *testing.T) {
	f := newFixture()
	f.service.orgs = &mockOrgResolver{
		findFunc: func(ctx context.Context, id string) (*model.Organization, error) {
			return &model.Organization{ID: testOrgID, RequireMembership: true}, nil
		},
	}
	f.repo.countActiveByClientFunc = func(ctx context.Context, orgID, clientID string) (int64, error) {
		return 500, nil
	}

	// Fixture client has a nil allowance, which means unlimited.
	if _, err := f.service.Create(staffCtx(), sessionInput(f)); err != nil {
		t.Fatalf("nil allowance means unlimited, got: %v", err)
	}
}

func TestCreate_SlotLockHeld(t *testing.T) {
	f := newFixture()
	f.locks.createFunc = func(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
		return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}

	_, err := f.service.Create(staffCtx(), sessionInput(f))
	assertCode(t, err, apperrors.CodeConflict)
}

func TestCreate_SpaceOverlapFull(t *testing.T) {
	f := newFixture()
	f.repo.countActiveOverlappingFunc = func(ctx context.Context, spaceID string, start, end time.Time) (int64, error) {
		return 1, nil
	}

	input := &model.BookingInput{
		SpaceID:   testSpaceID,
		ClientID:  testClientID,
		StartTime: f.slotStart,
		EndTime:   f.slotEnd,
	}

	_, err := f.service.Create(staffCtx(), input)
	assertCode(t, err, apperrors.CodeCapacityFull)

	f.repo.countActiveOverlappingFunc = nil
	if _, err := f.service.Create(staffCtx(), input); err != nil {
		t.Fatalf("unexpected error once the space frees up: %v", err)
	}
}

func TestCreate_ClientBooksOnlyForSelf(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(clientCtx("someone-else"), sessionInput(f))
	assertCode(t, err, apperrors.CodeForbidden)

	if _, err := f.service.Create(clientCtx("user-1"), sessionInput(f)); err != nil {
		t.Fatalf("client booking their own record should succeed, got: %v", err)
	}
}

func TestCreate_InactiveSession(t *testing.T) {
	f := newFixture()
	f.service.sessions = &mockSessionResolver{
		findFunc: func(ctx context.Context, id string) (*model.ServiceSession, error) {
			return &model.ServiceSession{
				ID:             testSessionID,
				OrganizationID: testOrgID,
				Slots:          2,
				IsActive:       false,
			}, nil
		},
	}

	_, err := f.service.Create(staffCtx(), sessionInput(f))
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func confirmedBooking(f *testFixture) *model.Booking {
	return &model.Booking{
		ID:             testBookingID,
		OrganizationID: testOrgID,
		SessionID:      testSessionID,
		ClientID:       testClientID,
		StartTime:      f.slotStart,
		EndTime:        f.slotEnd,
		Status:         model.StatusConfirmed,
	}
}

func TestChangeStatus_WindowBlocksButCancelExempt(t *testing.T) {
	f := newFixture()
	window := 24
	f.service.orgs = &mockOrgResolver{
		findFunc: func(ctx context.Context, id string) (*model.Organization, error) {
			return &model.Organization{ID: testOrgID, BookingChangeHours: &window}, nil
		},
	}

	// Booking starts 10h from now, inside the 24h window.
	near := confirmedBooking(f)
	near.StartTime = f.now.Add(10 * time.Hour)
	near.EndTime = near.StartTime.Add(time.Hour)
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := *near
		return &b, nil
	}

	_, err := f.service.ChangeStatus(staffCtx(), testBookingID, &model.StatusChange{Status: model.StatusCompleted})
	assertCode(t, err, apperrors.CodeChangeWindow)

	booking, err := f.service.ChangeStatus(staffCtx(), testBookingID, &model.StatusChange{Status: model.StatusCancelled})
	if err != nil {
		t.Fatalf("cancellation must bypass the change window, got: %v", err)
	}
	if booking.Status != model.StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", booking.Status)
	}
	if len(f.publisher.cancelled) != 1 {
		t.Errorf("expected 1 cancelled event, got %d", len(f.publisher.cancelled))
	}
}

func TestChangeStatus_OutsideWindow(t *testing.T) {
	f := newFixture()
	window := 24
	f.service.orgs = &mockOrgResolver{
		findFunc: func(ctx context.Context, id string) (*model.Organization, error) {
			return &model.Organization{ID: testOrgID, BookingChangeHours: &window}, nil
		},
	}
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := confirmedBooking(f)
		b.StartTime = f.now.Add(48 * time.Hour)
		b.EndTime = b.StartTime.Add(time.Hour)
		return b, nil
	}

	if _, err := f.service.ChangeStatus(staffCtx(), testBookingID, &model.StatusChange{Status: model.StatusCompleted}); err != nil {
		t.Fatalf("48h out is beyond a 24h window, got: %v", err)
	}
}

func TestChangeStatus_CancellationIrreversible(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := confirmedBooking(f)
		b.Status = model.StatusCancelled
		return b, nil
	}

	_, err := f.service.ChangeStatus(staffCtx(), testBookingID, &model.StatusChange{Status: model.StatusConfirmed})
	assertCode(t, err, apperrors.CodeConflict)
}

func TestChangeStatus_SameStatusNoop(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return confirmedBooking(f), nil
	}
	updated := false
	f.repo.updateStatusFunc = func(ctx context.Context, id string, status model.BookingStatus) error {
		updated = true
		return nil
	}

	if _, err := f.service.ChangeStatus(staffCtx(), testBookingID, &model.StatusChange{Status: model.StatusConfirmed}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated {
		t.Errorf("identical transition must not touch the repository")
	}
}

func TestChangeStatus_ClientMayOnlyCancel(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return confirmedBooking(f), nil
	}

	_, err := f.service.ChangeStatus(clientCtx("user-1"), testBookingID, &model.StatusChange{Status: model.StatusCompleted})
	assertCode(t, err, apperrors.CodeForbidden)

	if _, err := f.service.ChangeStatus(clientCtx("user-1"), testBookingID, &model.StatusChange{Status: model.StatusCancelled}); err != nil {
		t.Fatalf("client cancelling own booking should succeed, got: %v", err)
	}
}

func TestCheckIn_Flow(t *testing.T) {
	f := newFixture()
	stored := confirmedBooking(f)
	stored.StartTime = f.now.Add(2 * time.Hour) // same calendar day
	stored.EndTime = stored.StartTime.Add(time.Hour)
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := *stored
		return &b, nil
	}
	f.repo.setCheckedInFunc = func(ctx context.Context, id string, at time.Time) error {
		stored.CheckedIn = true
		stored.CheckedInAt = &at
		return nil
	}

	booking, err := f.service.CheckIn(staffCtx(), testBookingID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !booking.CheckedIn || booking.CheckedInAt == nil {
		t.Errorf("expected booking marked checked in")
	}
	if len(f.publisher.checkedIn) != 1 {
		t.Errorf("expected 1 checked-in event, got %d", len(f.publisher.checkedIn))
	}

	_, err = f.service.CheckIn(staffCtx(), testBookingID)
	assertCode(t, err, apperrors.CodeAlreadyCheckedIn)
}

func TestCheckIn_NotToday(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return confirmedBooking(f), nil // starts a week out
	}

	_, err := f.service.CheckIn(staffCtx(), testBookingID)
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestCheckIn_CancelledBooking(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := confirmedBooking(f)
		b.StartTime = f.now.Add(time.Hour)
		b.Status = model.StatusCancelled
		return b, nil
	}

	_, err := f.service.CheckIn(staffCtx(), testBookingID)
	assertCode(t, err, apperrors.CodeConflict)
}

func TestCheckInByToken(t *testing.T) {
	f := newFixture()
	stored := confirmedBooking(f)
	stored.StartTime = f.now.Add(2 * time.Hour)
	stored.EndTime = stored.StartTime.Add(time.Hour)
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := *stored
		return &b, nil
	}

	booking, err := f.service.CheckInByToken(staffCtx(), testBookingID+"|"+testClientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !booking.CheckedIn {
		t.Errorf("expected booking checked in via token")
	}

	_, err = f.service.CheckInByToken(staffCtx(), testBookingID+"|"+"64a0000000000000000000ff")
	assertCode(t, err, apperrors.CodeUnauthorized)

	_, err = f.service.CheckInByToken(staffCtx(), "garbage")
	assertCode(t, err, apperrors.CodeUnauthorized)
}

func TestGetByID_ClientSeesOnlyOwn(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return confirmedBooking(f), nil
	}

	if _, err := f.service.GetByID(clientCtx("user-1"), testBookingID); err != nil {
		t.Fatalf("owner client should read their booking, got: %v", err)
	}

	_, err := f.service.GetByID(clientCtx("someone-else"), testBookingID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestSlotCounts(t *testing.T) {
	f := newFixture()
	f.repo.countActiveBySlotFunc = func(ctx context.Context, sessionID string, start, end time.Time) (int64, error) {
		return 1, nil
	}

	counts, err := f.service.SlotCounts(staffCtx(), testSessionID, f.slotStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counts) != 1 {
		t.Fatalf("expected 1 projected slot, got %d", len(counts))
	}
	want := f.slotStart.Format("15:04") + "-" + f.slotEnd.Format("15:04")
	if counts[0].Slot != want {
		t.Errorf("expected slot key %s, got %s", want, counts[0].Slot)
	}
	if counts[0].Booked != 1 {
		t.Errorf("expected 1 booked, got %d", counts[0].Booked)
	}
}

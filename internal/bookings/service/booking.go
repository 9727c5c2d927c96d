package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "bookwell/internal/bookings/errors"
	"bookwell/internal/bookings/policy"
	"bookwell/internal/bookings/repository"
	"bookwell/internal/bookings/validator"
	"bookwell/pkg/auth"
	"bookwell/pkg/config"
	apperrors "bookwell/pkg/errors"
	"bookwell/pkg/events"
	"bookwell/pkg/model"
	"bookwell/pkg/sanitizer"
	"bookwell/pkg/timetable"

	qrcode "github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/mongo"
)

// Resolvers give the booking engine read access to the other domains
// without importing their services. The domain repositories satisfy
// these directly.
type SessionResolver interface {
	FindByID(ctx context.Context, id string) (*model.ServiceSession, error)
}

type SpaceResolver interface {
	FindByID(ctx context.Context, id string) (*model.Space, error)
}

type ClientResolver interface {
	FindByID(ctx context.Context, id string) (*model.Client, error)
}

type OrganizationResolver interface {
	FindByID(ctx context.Context, id string) (*model.Organization, error)
}

// TokenSealer produces and verifies opaque check-in tokens.
type TokenSealer interface {
	CreateToken(bookingID, clientID string) (string, error)
	ParseToken(token string) (string, string, error)
}

// SlotCount is the per-slot occupancy of one projected occurrence.
type SlotCount struct {
	Slot      string    `json:"slot"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Booked    int64     `json:"booked"`
}

type BookingService interface {
	Create(ctx context.Context, input *model.BookingInput) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetByOrganization(ctx context.Context, orgID string, filter repository.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	ChangeStatus(ctx context.Context, id string, change *model.StatusChange) (*model.Booking, error)

	CheckIn(ctx context.Context, id string) (*model.Booking, error)
	CheckInByToken(ctx context.Context, token string) (*model.Booking, error)
	CheckInQR(ctx context.Context, id string) ([]byte, error)
	TodayForClient(ctx context.Context, clientID string) ([]*model.Booking, error)

	SlotCounts(ctx context.Context, sessionID string, date time.Time) ([]SlotCount, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	validator *validator.BookingValidator

	sessions SessionResolver
	spaces   SpaceResolver
	clients  ClientResolver
	orgs     OrganizationResolver

	sealer    TokenSealer
	publisher events.Publisher
	cfg       *config.Config

	now func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	validator *validator.BookingValidator,
	sessions SessionResolver,
	spaces SpaceResolver,
	clients ClientResolver,
	orgs OrganizationResolver,
	sealer TokenSealer,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		validator: validator,
		sessions:  sessions,
		spaces:    spaces,
		clients:   clients,
		orgs:      orgs,
		sealer:    sealer,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func principal(ctx context.Context) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return auth.Principal{}, apperrors.Unauthorized("Authentication required")
	}
	return p, nil
}

// Create runs the full admission pipeline: resolve the target resource,
// authorize, apply the allowance gate, then re-check capacity and insert
// under an advisory slot lock plus a transaction. Counts are always
// computed inside the transactional boundary.
func (s *bookingService) Create(ctx context.Context, input *model.BookingInput) (*model.Booking, error) {
	if err := s.validator.ValidateInput(input); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	client, err := s.clients.FindByID(ctx, input.ClientID)
	if err != nil {
		return nil, apperrors.NotFoundWithID("Client", input.ClientID)
	}

	booking := &model.Booking{
		ClientID:  client.ID,
		StartTime: input.StartTime.UTC(),
		EndTime:   input.EndTime.UTC(),
		Status:    model.StatusConfirmed,
		Notes:     sanitizer.SanitizeNotes(input.Notes),
	}

	var capacity int
	var lockKey string

	if input.SessionID != "" {
		session, err := s.sessions.FindByID(ctx, input.SessionID)
		if err != nil {
			return nil, apperrors.NotFoundWithID("Service session", input.SessionID)
		}
		if !session.IsActive {
			return nil, apperrors.InvalidInput("Service session is not active")
		}
		if err := s.matchesTemplate(session, booking.StartTime, booking.EndTime); err != nil {
			return nil, err
		}
		booking.OrganizationID = session.OrganizationID
		booking.SessionID = session.ID
		capacity = session.Slots
		lockKey = fmt.Sprintf("booking_lock_%s_%d", session.ID, booking.StartTime.Unix())
	} else {
		space, err := s.spaces.FindByID(ctx, input.SpaceID)
		if err != nil {
			return nil, apperrors.NotFoundWithID("Space", input.SpaceID)
		}
		if !space.IsActive {
			return nil, apperrors.InvalidInput("Space is not active")
		}
		booking.OrganizationID = space.OrganizationID
		booking.SpaceID = space.ID
		capacity = space.Capacity
		lockKey = fmt.Sprintf("booking_lock_%s_%d", space.ID, booking.StartTime.Unix())
	}

	if client.OrganizationID != booking.OrganizationID {
		return nil, apperrors.NotFoundWithID("Client", input.ClientID)
	}
	if err := auth.Authorize(p, booking.OrganizationID); err != nil {
		return nil, err
	}
	if !p.Staff() && client.UserID != p.UserID {
		return nil, apperrors.Forbidden("Clients can only book for themselves")
	}

	org, err := s.orgs.FindByID(ctx, booking.OrganizationID)
	if err != nil {
		s.cfg.Log.Error("Failed to resolve organization for booking",
			"organization_id", booking.OrganizationID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to resolve organization", err)
	}

	lockID, err := s.acquireSlotLock(ctx, lockKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if org.RequireMembership {
			active, err := s.repo.CountActiveByClient(sessCtx, booking.OrganizationID, client.ID)
			if err != nil {
				return apperrors.Internal("Failed to count client bookings", err)
			}
			allowance := policy.AllowanceFromPtr(client.SessionAllowance)
			if err := policy.CheckAllowance(true, allowance, active); err != nil {
				return err
			}
		}

		var occupied int64
		var countErr error
		if booking.SessionID != "" {
			occupied, countErr = s.repo.CountActiveBySlot(sessCtx, booking.SessionID, booking.StartTime, booking.EndTime)
		} else {
			occupied, countErr = s.repo.CountActiveOverlapping(sessCtx, booking.SpaceID, booking.StartTime, booking.EndTime)
		}
		if countErr != nil {
			return apperrors.Internal("Failed to count existing bookings", countErr)
		}
		if occupied >= int64(capacity) {
			return apperrors.CapacityFull("No capacity remaining for this time slot")
		}

		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		if !apperrors.IsAppError(err) {
			s.cfg.Log.Error("Failed to create booking", "error", err)
			err = apperrors.Internal("Failed to create booking", err)
		}
		return nil, err
	}

	s.publisher.BookingCreated(ctx, s.toEvent(booking))

	s.cfg.Log.Info("Booking created",
		"id", booking.ID,
		"organization_id", booking.OrganizationID,
		"client_id", booking.ClientID,
		"start_time", booking.StartTime,
	)
	return booking, nil
}

// matchesTemplate rejects session bookings whose window is not one of
// the projected occurrences for that date.
func (s *bookingService) matchesTemplate(session *model.ServiceSession, start, end time.Time) error {
	occurrences := timetable.ProjectDay(session.Timetable, start)
	for _, occ := range occurrences {
		if occ.Start.Equal(start) && occ.End.Equal(end) {
			return nil
		}
	}
	return apperrors.InvalidInput("Requested time does not match a scheduled slot for this session")
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	if err := auth.Authorize(p, booking.OrganizationID); err != nil {
		return nil, err
	}
	if !p.Staff() {
		client, err := s.clients.FindByID(ctx, booking.ClientID)
		if err != nil || client.UserID != p.UserID {
			return nil, apperrors.NotFound("Booking")
		}
	}
	return booking, nil
}

func (s *bookingService) GetByOrganization(ctx context.Context, orgID string, filter repository.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := auth.Authorize(p, orgID, auth.RoleOwner, auth.RoleAdmin); err != nil {
		return nil, 0, err
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	count, err := s.repo.CountByOrganization(ctx, orgID, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to count bookings", "organization_id", orgID, "error", err)
		return nil, 0, apperrors.Internal("Failed to count bookings", err)
	}

	bookings, err := s.repo.FindByOrganization(ctx, orgID, filter, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "organization_id", orgID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}

	return bookings, count, nil
}

// ChangeStatus applies the status lifecycle rules: cancellation is
// irreversible, and any other transition is subject to the
// organization's change window. Identical transitions are no-ops.
func (s *bookingService) ChangeStatus(ctx context.Context, id string, change *model.StatusChange) (*model.Booking, error) {
	if err := s.validator.ValidateStatusChange(change); err != nil {
		return nil, apperrors.Validation("Invalid status change", map[string]any{
			"error": err.Error(),
		})
	}

	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	if err := auth.Authorize(p, booking.OrganizationID); err != nil {
		return nil, err
	}
	if !p.Staff() {
		client, err := s.clients.FindByID(ctx, booking.ClientID)
		if err != nil || client.UserID != p.UserID {
			return nil, apperrors.NotFound("Booking")
		}
		if change.Status != model.StatusCancelled {
			return nil, apperrors.Forbidden("Clients may only cancel their own bookings")
		}
	}

	target := change.Status
	if target == booking.Status {
		return booking, nil
	}
	if booking.Status == model.StatusCancelled {
		return nil, apperrors.Conflict("Cancelled bookings cannot change status")
	}

	org, err := s.orgs.FindByID(ctx, booking.OrganizationID)
	if err != nil {
		s.cfg.Log.Error("Failed to resolve organization for status change",
			"organization_id", booking.OrganizationID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to resolve organization", err)
	}

	window := policy.ChangeWindowFromPtr(org.BookingChangeHours)
	if err := policy.CheckChangeWindow(window, booking.Status, target, booking.StartTime, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, target); err != nil {
		return nil, s.mapLookupError(err, id)
	}
	booking.Status = target

	if target == model.StatusCancelled {
		s.publisher.BookingCancelled(ctx, s.toEvent(booking))
	}

	s.cfg.Log.Info("Booking status changed",
		"id", id,
		"status", target,
	)
	return booking, nil
}

func (s *bookingService) CheckIn(ctx context.Context, id string) (*model.Booking, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	if err := auth.Authorize(p, booking.OrganizationID, auth.RoleOwner, auth.RoleAdmin); err != nil {
		return nil, err
	}

	return s.checkIn(ctx, booking)
}

// CheckInByToken accepts the sealed QR payload instead of a booking id.
// The sealed client id must still match the booking.
func (s *bookingService) CheckInByToken(ctx context.Context, token string) (*model.Booking, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	bookingID, clientID, err := s.sealer.ParseToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid check-in token")
	}

	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, s.mapLookupError(err, bookingID)
	}
	if booking.ClientID != clientID {
		return nil, apperrors.Unauthorized("Invalid check-in token")
	}
	if err := auth.Authorize(p, booking.OrganizationID, auth.RoleOwner, auth.RoleAdmin); err != nil {
		return nil, err
	}

	return s.checkIn(ctx, booking)
}

func (s *bookingService) checkIn(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	if booking.Status == model.StatusCancelled {
		return nil, apperrors.Conflict("Cancelled bookings cannot be checked in")
	}

	now := s.now()
	dayStart, dayEnd := timetable.DayBounds(now)
	if booking.StartTime.Before(dayStart) || !booking.StartTime.Before(dayEnd) {
		return nil, apperrors.InvalidInput("Check-in is only available on the day of the booking")
	}

	if booking.CheckedIn {
		return nil, apperrors.AlreadyCheckedIn(booking.ID)
	}

	if err := s.repo.SetCheckedIn(ctx, booking.ID, now); err != nil {
		return nil, s.mapLookupError(err, booking.ID)
	}
	booking.CheckedIn = true
	booking.CheckedInAt = &now

	s.publisher.BookingCheckedIn(ctx, s.toEvent(booking))

	s.cfg.Log.Info("Booking checked in", "id", booking.ID, "client_id", booking.ClientID)
	return booking, nil
}

// CheckInQR renders the sealed check-in token as a PNG QR code.
func (s *bookingService) CheckInQR(ctx context.Context, id string) ([]byte, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	token, err := s.sealer.CreateToken(booking.ID, booking.ClientID)
	if err != nil {
		s.cfg.Log.Error("Failed to seal check-in token", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to create check-in token", err)
	}

	png, err := qrcode.Encode(token, qrcode.Medium, 256)
	if err != nil {
		s.cfg.Log.Error("Failed to encode check-in QR", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to render check-in code", err)
	}
	return png, nil
}

func (s *bookingService) TodayForClient(ctx context.Context, clientID string) ([]*model.Booking, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if clientID == "" {
		return nil, apperrors.InvalidInput("Client ID cannot be empty")
	}

	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, apperrors.NotFoundWithID("Client", clientID)
	}
	if err := auth.Authorize(p, client.OrganizationID); err != nil {
		return nil, err
	}
	if !p.Staff() && client.UserID != p.UserID {
		return nil, apperrors.NotFound("Client")
	}

	dayStart, dayEnd := timetable.DayBounds(s.now())
	bookings, err := s.repo.FindTodayByClient(ctx, client.OrganizationID, clientID, dayStart, dayEnd)
	if err != nil {
		s.cfg.Log.Error("Failed to fetch today's bookings", "client_id", clientID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	return bookings, nil
}

// SlotCounts returns the active booking count for each projected
// occurrence of a session on one date, keyed "HH:mm-HH:mm".
func (s *bookingService) SlotCounts(ctx context.Context, sessionID string, date time.Time) ([]SlotCount, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.NotFoundWithID("Service session", sessionID)
	}
	if err := auth.Authorize(p, session.OrganizationID); err != nil {
		return nil, err
	}

	occurrences := timetable.ProjectDay(session.Timetable, date)
	counts := make([]SlotCount, 0, len(occurrences))
	for _, occ := range occurrences {
		booked, err := s.repo.CountActiveBySlot(ctx, sessionID, occ.Start, occ.End)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings for slot",
				"session_id", sessionID,
				"start", occ.Start,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to count bookings", err)
		}
		counts = append(counts, SlotCount{
			Slot:      timetable.SlotKey(occ),
			StartTime: occ.Start,
			EndTime:   occ.End,
			Booked:    booked,
		})
	}
	return counts, nil
}

// --- Helpers ---

func (s *bookingService) acquireSlotLock(ctx context.Context, lockID string) (string, error) {
	lock := &model.BookingLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.BookingLockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This time slot is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}

	return lockID, nil
}

func (s *bookingService) releaseSlotLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}

func (s *bookingService) toEvent(b *model.Booking) events.BookingEvent {
	return events.BookingEvent{
		BookingID:      b.ID,
		OrganizationID: b.OrganizationID,
		ClientID:       b.ClientID,
		SessionID:      b.SessionID,
		SpaceID:        b.SpaceID,
		StartTime:      b.StartTime,
		EndTime:        b.EndTime,
		Status:         string(b.Status),
	}
}

func (s *bookingService) mapLookupError(err error, id string) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	s.cfg.Log.Error("Booking repository error", "id", id, "error", err)
	return apperrors.Internal("Failed to access booking", err)
}

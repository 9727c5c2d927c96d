package service

import (
	"context"
	"errors"
	"time"

	sessionserrors "bookwell/internal/sessions/errors"
	"bookwell/internal/sessions/repository"
	"bookwell/internal/sessions/validator"
	"bookwell/pkg/auth"
	"bookwell/pkg/config"
	apperrors "bookwell/pkg/errors"
	"bookwell/pkg/model"
	"bookwell/pkg/sanitizer"
	"bookwell/pkg/timetable"

	"github.com/google/uuid"
)

// BookingCounter reports how many active bookings occupy an exact
// session slot. Implemented by the bookings repository.
type BookingCounter interface {
	CountActiveBySlot(ctx context.Context, sessionID string, start, end time.Time) (int64, error)
}

// BookingRemover deletes every booking attached to a session. Implemented
// by the bookings repository.
type BookingRemover interface {
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

// SlotAvailability is one projected occurrence with its occupancy.
type SlotAvailability struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Capacity  int       `json:"capacity"`
	Booked    int64     `json:"booked"`
	Available int64     `json:"available"`
}

type SessionService interface {
	Create(ctx context.Context, session *model.ServiceSession) error
	GetByID(ctx context.Context, id string) (*model.ServiceSession, error)
	GetByOrganization(ctx context.Context, orgID string, limit int, offset int64) ([]*model.ServiceSession, int64, error)
	Update(ctx context.Context, id string, updates *model.ServiceSessionUpdate) error
	Delete(ctx context.Context, id string) error

	AddTimeSlot(ctx context.Context, id string, slot model.TimeSlotTemplate) (*model.TimeSlotTemplate, error)
	RemoveTimeSlot(ctx context.Context, id string, slotID string) error
	Availability(ctx context.Context, id string, date time.Time) ([]SlotAvailability, error)
}

type sessionService struct {
	repo      repository.SessionRepository
	counter   BookingCounter
	remover   BookingRemover
	validator *validator.SessionValidator
	cfg       *config.Config
}

func NewSessionService(
	repo repository.SessionRepository,
	counter BookingCounter,
	remover BookingRemover,
	validator *validator.SessionValidator,
	cfg *config.Config,
) SessionService {
	return &sessionService{
		repo:      repo,
		counter:   counter,
		remover:   remover,
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

func (s *sessionService) Create(ctx context.Context, session *model.ServiceSession) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if err := auth.Authorize(p, session.OrganizationID, auth.RoleOwner, auth.RoleAdmin); err != nil {
		return err
	}

	session.Name = sanitizer.SanitizeName(session.Name)
	session.Description = sanitizer.SanitizeNotes(session.Description)
	session.ThemeColor = sanitizer.SanitizeHexColor(session.ThemeColor)
	for i := range session.Timetable {
		session.Timetable[i].ID = uuid.NewString()
	}

	if err := s.validator.Validate(session); err != nil {
		s.cfg.Log.Warn("Service session validation failed",
			"name", session.Name,
			"organization_id", session.OrganizationID,
			"error", err,
		)
		return apperrors.Validation("Service session validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Create(ctx, session); err != nil {
		s.cfg.Log.Error("Failed to create service session",
			"name", session.Name,
			"organization_id", session.OrganizationID,
			"error", err,
		)
		return apperrors.Internal("Failed to create service session", err)
	}

	s.cfg.Log.Info("Service session created",
		"id", session.ID,
		"name", session.Name,
		"organization_id", session.OrganizationID,
		"slots", session.Slots,
	)
	return nil
}

func (s *sessionService) GetByID(ctx context.Context, id string) (*model.ServiceSession, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Service session ID cannot be empty")
	}

	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	if err := auth.Authorize(p, session.OrganizationID); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) GetByOrganization(ctx context.Context, orgID string, limit int, offset int64) ([]*model.ServiceSession, int64, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := auth.Authorize(p, orgID); err != nil {
		return nil, 0, err
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	count, err := s.repo.CountByOrganization(ctx, orgID)
	if err != nil {
		s.cfg.Log.Error("Failed to count service sessions", "organization_id", orgID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve service sessions", err)
	}

	sessions, err := s.repo.FindByOrganization(ctx, orgID, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list service sessions", "organization_id", orgID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve service sessions", err)
	}

	return sessions, count, nil
}

func (s *sessionService) Update(ctx context.Context, id string, updates *model.ServiceSessionUpdate) error {
	session, err := s.getAuthorizedForWrite(ctx, id)
	if err != nil {
		return err
	}

	updates.Name = sanitizer.SanitizeName(updates.Name)
	updates.Description = sanitizer.SanitizeNotes(updates.Description)
	if updates.ThemeColor != "" {
		updates.ThemeColor = sanitizer.SanitizeHexColor(updates.ThemeColor)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		return apperrors.Validation("Service session update validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if updates.Name != "" {
		session.Name = updates.Name
	}
	if updates.Description != "" {
		session.Description = updates.Description
	}
	if updates.ThemeColor != "" {
		session.ThemeColor = updates.ThemeColor
	}
	if updates.Slots != nil {
		session.Slots = *updates.Slots
	}
	if updates.IsActive != nil {
		session.IsActive = *updates.IsActive
	}

	if err := s.repo.Update(ctx, id, session); err != nil {
		return s.mapLookupError(err, id)
	}

	s.cfg.Log.Info("Service session updated", "id", id)
	return nil
}

// Delete removes the session and cascades to its bookings: a deleted
// session must stop counting toward client allowances and disappear
// from organization listings.
func (s *sessionService) Delete(ctx context.Context, id string) error {
	if _, err := s.getAuthorizedForWrite(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapLookupError(err, id)
	}

	removed, err := s.remover.DeleteBySession(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to delete bookings for removed session",
			"session_id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to delete session bookings", err)
	}

	s.cfg.Log.Info("Service session deleted", "id", id, "bookings_removed", removed)
	return nil
}

func (s *sessionService) AddTimeSlot(ctx context.Context, id string, slot model.TimeSlotTemplate) (*model.TimeSlotTemplate, error) {
	if _, err := s.getAuthorizedForWrite(ctx, id); err != nil {
		return nil, err
	}

	slot.ID = uuid.NewString()
	if err := s.validator.ValidateSlot(slot); err != nil {
		return nil, apperrors.Validation("Time slot validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.AddTimeSlot(ctx, id, slot); err != nil {
		return nil, s.mapLookupError(err, id)
	}

	s.cfg.Log.Info("Time slot added",
		"session_id", id,
		"slot_id", slot.ID,
		"day_of_week", slot.DayOfWeek,
		"start_time", slot.StartTime,
	)
	return &slot, nil
}

func (s *sessionService) RemoveTimeSlot(ctx context.Context, id string, slotID string) error {
	if _, err := s.getAuthorizedForWrite(ctx, id); err != nil {
		return err
	}
	if slotID == "" {
		return apperrors.InvalidInput("Time slot ID cannot be empty")
	}

	if err := s.repo.RemoveTimeSlot(ctx, id, slotID); err != nil {
		if errors.Is(err, sessionserrors.ErrSlotNotFound) {
			return apperrors.NotFoundWithID("Time slot", slotID)
		}
		return s.mapLookupError(err, id)
	}

	s.cfg.Log.Info("Time slot removed", "session_id", id, "slot_id", slotID)
	return nil
}

// Availability projects the weekly timetable onto one calendar date and
// annotates each occurrence with its active booking count. Removing a
// template never touches existing bookings, so Booked can exceed
// Capacity on a slot that no longer appears here.
func (s *sessionService) Availability(ctx context.Context, id string, date time.Time) ([]SlotAvailability, error) {
	session, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	occurrences := timetable.ProjectDay(session.Timetable, date)
	availability := make([]SlotAvailability, 0, len(occurrences))

	for _, occ := range occurrences {
		booked, err := s.counter.CountActiveBySlot(ctx, id, occ.Start, occ.End)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings for slot",
				"session_id", id,
				"start", occ.Start,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to compute availability", err)
		}

		available := int64(session.Slots) - booked
		if available < 0 {
			available = 0
		}

		availability = append(availability, SlotAvailability{
			StartTime: occ.Start,
			EndTime:   occ.End,
			Capacity:  session.Slots,
			Booked:    booked,
			Available: available,
		})
	}

	return availability, nil
}

func (s *sessionService) getAuthorizedForWrite(ctx context.Context, id string) (*model.ServiceSession, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Service session ID cannot be empty")
	}

	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	if err := auth.Authorize(p, session.OrganizationID, auth.RoleOwner, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) mapLookupError(err error, id string) error {
	if errors.Is(err, sessionserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Service session", id)
	}
	if errors.Is(err, sessionserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid service session ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	s.cfg.Log.Error("Service session repository error", "id", id, "error", err)
	return apperrors.Internal("Failed to access service session", err)
}

package service

import (
	"context"
	"errors"
	"time"

	spaceserrors "bookwell/internal/spaces/errors"
	"bookwell/internal/spaces/repository"
	"bookwell/internal/spaces/validator"
	"bookwell/pkg/auth"
	"bookwell/pkg/config"
	apperrors "bookwell/pkg/errors"
	"bookwell/pkg/interval"
	"bookwell/pkg/model"
	"bookwell/pkg/sanitizer"
	"bookwell/pkg/timetable"
)

// OverlapCounter exposes the occupancy of a space to availability
// queries. Implemented by the bookings repository.
type OverlapCounter interface {
	CountActiveOverlapping(ctx context.Context, spaceID string, start, end time.Time) (int64, error)
	FindActiveIntervalsBySpace(ctx context.Context, spaceID string, from, to time.Time) ([]interval.Interval, error)
}

// SlotAvailability is one operating-hours grid slot with its occupancy.
type SlotAvailability struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Capacity  int       `json:"capacity"`
	Booked    int64     `json:"booked"`
	Available int64     `json:"available"`
}

type SpaceService interface {
	Create(ctx context.Context, space *model.Space) error
	GetByID(ctx context.Context, id string) (*model.Space, error)
	GetByOrganization(ctx context.Context, orgID string, limit int, offset int64) ([]*model.Space, int64, error)
	Update(ctx context.Context, id string, updates *model.SpaceUpdate) error
	Delete(ctx context.Context, id string) error

	Availability(ctx context.Context, id string, date time.Time) ([]SlotAvailability, error)
	FreeWindows(ctx context.Context, id string, date time.Time) ([]interval.Interval, error)
}

type spaceService struct {
	repo      repository.SpaceRepository
	counter   OverlapCounter
	validator *validator.SpaceValidator
	cfg       *config.Config
}

func NewSpaceService(
	repo repository.SpaceRepository,
	counter OverlapCounter,
	validator *validator.SpaceValidator,
	cfg *config.Config,
) SpaceService {
	return &spaceService{
		repo:      repo,
		counter:   counter,
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

func (s *spaceService) Create(ctx context.Context, space *model.Space) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if err := auth.Authorize(p, space.OrganizationID, auth.RoleOwner, auth.RoleAdmin); err != nil {
		return err
	}

	space.Name = sanitizer.SanitizeName(space.Name)
	space.Description = sanitizer.SanitizeNotes(space.Description)

	if err := s.validator.Validate(space); err != nil {
		s.cfg.Log.Warn("Space validation failed",
			"name", space.Name,
			"organization_id", space.OrganizationID,
			"error", err,
		)
		return apperrors.Validation("Space validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Create(ctx, space); err != nil {
		s.cfg.Log.Error("Failed to create space",
			"name", space.Name,
			"organization_id", space.OrganizationID,
			"error", err,
		)
		return apperrors.Internal("Failed to create space", err)
	}

	s.cfg.Log.Info("Space created",
		"id", space.ID,
		"name", space.Name,
		"organization_id", space.OrganizationID,
		"capacity", space.Capacity,
	)
	return nil
}

func (s *spaceService) GetByID(ctx context.Context, id string) (*model.Space, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Space ID cannot be empty")
	}

	space, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	if err := auth.Authorize(p, space.OrganizationID); err != nil {
		return nil, err
	}
	return space, nil
}

func (s *spaceService) GetByOrganization(ctx context.Context, orgID string, limit int, offset int64) ([]*model.Space, int64, error) {
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
		s.cfg.Log.Error("Failed to count spaces", "organization_id", orgID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve spaces", err)
	}

	spaces, err := s.repo.FindByOrganization(ctx, orgID, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list spaces", "organization_id", orgID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve spaces", err)
	}

	return spaces, count, nil
}

func (s *spaceService) Update(ctx context.Context, id string, updates *model.SpaceUpdate) error {
	space, err := s.getAuthorizedForWrite(ctx, id)
	if err != nil {
		return err
	}

	updates.Name = sanitizer.SanitizeName(updates.Name)
	updates.Description = sanitizer.SanitizeNotes(updates.Description)

	if err := s.validator.ValidateUpdate(updates); err != nil {
		return apperrors.Validation("Space update validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if updates.Name != "" {
		space.Name = updates.Name
	}
	if updates.Description != "" {
		space.Description = updates.Description
	}
	if updates.Capacity != nil {
		space.Capacity = *updates.Capacity
	}
	if updates.IsActive != nil {
		space.IsActive = *updates.IsActive
	}

	if err := s.repo.Update(ctx, id, space); err != nil {
		return s.mapLookupError(err, id)
	}

	s.cfg.Log.Info("Space updated", "id", id)
	return nil
}

func (s *spaceService) Delete(ctx context.Context, id string) error {
	if _, err := s.getAuthorizedForWrite(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapLookupError(err, id)
	}

	s.cfg.Log.Info("Space deleted", "id", id)
	return nil
}

// Availability slices the operating day into fixed-duration slots and
// annotates each with the number of active bookings overlapping it.
// Because space conflicts are overlap based, one long booking can
// occupy several grid slots at once.
func (s *spaceService) Availability(ctx context.Context, id string, date time.Time) ([]SlotAvailability, error) {
	space, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	slots := timetable.GenerateSlots(
		date, date,
		time.Duration(s.cfg.DefaultSlotDurationMin)*time.Minute,
		s.cfg.DefaultDayStartHour,
		s.cfg.DefaultDayEndHour,
	)

	availability := make([]SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		booked, err := s.counter.CountActiveOverlapping(ctx, id, slot.Start, slot.End)
		if err != nil {
			s.cfg.Log.Error("Failed to count overlapping bookings",
				"space_id", id,
				"start", slot.Start,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to compute availability", err)
		}

		available := int64(space.Capacity) - booked
		if available < 0 {
			available = 0
		}

		availability = append(availability, SlotAvailability{
			StartTime: slot.Start,
			EndTime:   slot.End,
			Capacity:  space.Capacity,
			Booked:    booked,
			Available: available,
		})
	}

	return availability, nil
}

// FreeWindows returns the grid slots no booking touches at all. Unlike
// Availability this ignores capacity: a slot with one booking in a
// ten-person space is excluded here but still has nine seats above.
func (s *spaceService) FreeWindows(ctx context.Context, id string, date time.Time) ([]interval.Interval, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	slots := timetable.GenerateSlots(
		date, date,
		time.Duration(s.cfg.DefaultSlotDurationMin)*time.Minute,
		s.cfg.DefaultDayStartHour,
		s.cfg.DefaultDayEndHour,
	)
	if len(slots) == 0 {
		return []interval.Interval{}, nil
	}

	dayStart, dayEnd := timetable.DayBounds(date)
	booked, err := s.counter.FindActiveIntervalsBySpace(ctx, id, dayStart, dayEnd)
	if err != nil {
		s.cfg.Log.Error("Failed to fetch occupied windows",
			"space_id", id,
			"date", dayStart,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to compute free windows", err)
	}

	return interval.FilterAvailable(slots, booked), nil
}

func (s *spaceService) getAuthorizedForWrite(ctx context.Context, id string) (*model.Space, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Space ID cannot be empty")
	}

	space, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	if err := auth.Authorize(p, space.OrganizationID, auth.RoleOwner, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return space, nil
}

func (s *spaceService) mapLookupError(err error, id string) error {
	if errors.Is(err, spaceserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Space", id)
	}
	if errors.Is(err, spaceserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid space ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	s.cfg.Log.Error("Space repository error", "id", id, "error", err)
	return apperrors.Internal("Failed to access space", err)
}

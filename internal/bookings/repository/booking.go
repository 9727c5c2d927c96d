package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "bookwell/internal/bookings/errors"
	"bookwell/pkg/config"
	mongotx "bookwell/pkg/db/mongo"
	"bookwell/pkg/interval"
	"bookwell/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

// BookingFilter narrows organization-scoped listing queries. Zero
// values mean "no constraint".
type BookingFilter struct {
	ClientID  string
	SessionID string
	SpaceID   string
	Status    model.BookingStatus
	From      *time.Time
	To        *time.Time
}

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByOrganization(ctx context.Context, orgID string, filter BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	CountByOrganization(ctx context.Context, orgID string, filter BookingFilter) (int64, error)
	UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error
	SetCheckedIn(ctx context.Context, id string, at time.Time) error

	CountActiveBySlot(ctx context.Context, sessionID string, start, end time.Time) (int64, error)
	CountActiveOverlapping(ctx context.Context, spaceID string, start, end time.Time) (int64, error)
	CountActiveByClient(ctx context.Context, orgID, clientID string) (int64, error)
	FindActiveIntervalsBySpace(ctx context.Context, spaceID string, from, to time.Time) ([]interval.Interval, error)
	FindTodayByClient(ctx context.Context, orgID, clientID string, dayStart, dayEnd time.Time) ([]*model.Booking, error)

	DeleteBySession(ctx context.Context, sessionID string) (int64, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = now
	booking.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}

	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func buildFilter(orgID string, f BookingFilter) bson.M {
	filter := bson.M{"organization_id": orgID}

	if f.ClientID != "" {
		filter["client_id"] = f.ClientID
	}
	if f.SessionID != "" {
		filter["session_id"] = f.SessionID
	}
	if f.SpaceID != "" {
		filter["space_id"] = f.SpaceID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	timeRange := bson.M{}
	if f.From != nil {
		timeRange["$gte"] = *f.From
	}
	if f.To != nil {
		timeRange["$lt"] = *f.To
	}
	if len(timeRange) > 0 {
		filter["start_time"] = timeRange
	}

	return filter
}

func (r *mongoBookingRepository) FindByOrganization(ctx context.Context, orgID string, filter BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, buildFilter(orgID, filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) CountByOrganization(ctx context.Context, orgID string, filter BookingFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(orgID, filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
	}

	return nil
}

func (r *mongoBookingRepository) SetCheckedIn(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"checked_in":    true,
			"checked_in_at": at,
			"updated_at":    time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to set booking checked in: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
	}

	return nil
}

// CountActiveBySlot counts bookings occupying the exact (start, end)
// slot of a session. Session capacity is per identical occurrence, so
// only exact matches compete.
func (r *mongoBookingRepository) CountActiveBySlot(ctx context.Context, sessionID string, start, end time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"session_id": sessionID,
		"start_time": start,
		"end_time":   end,
		"status":     bson.M{"$ne": model.StatusCancelled},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings by slot: %w", err)
	}
	return count, nil
}

// CountActiveOverlapping counts bookings sharing any instant with the
// candidate window in a space. Exclusive bounds: touching endpoints do
// not overlap.
func (r *mongoBookingRepository) CountActiveOverlapping(ctx context.Context, spaceID string, start, end time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"space_id":   spaceID,
		"start_time": bson.M{"$lt": end},
		"end_time":   bson.M{"$gt": start},
		"status":     bson.M{"$ne": model.StatusCancelled},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return count, nil
}

// DeleteBySession removes every booking attached to a session,
// regardless of status. Used when the session itself is deleted.
func (r *mongoBookingRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete bookings for session: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *mongoBookingRepository) CountActiveByClient(ctx context.Context, orgID, clientID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"organization_id": orgID,
		"client_id":       clientID,
		"status":          bson.M{"$ne": model.StatusCancelled},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count client bookings: %w", err)
	}
	return count, nil
}

// FindActiveIntervalsBySpace returns the occupied windows of a space
// within [from, to) as bare intervals, sorted by start time.
func (r *mongoBookingRepository) FindActiveIntervalsBySpace(ctx context.Context, spaceID string, from, to time.Time) ([]interval.Interval, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"space_id":   spaceID,
		"start_time": bson.M{"$lt": to},
		"end_time":   bson.M{"$gt": from},
		"status":     bson.M{"$ne": model.StatusCancelled},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetProjection(bson.M{"start_time": 1, "end_time": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query occupied windows: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode occupied windows: %w", err)
	}

	intervals := make([]interval.Interval, 0, len(bookings))
	for _, b := range bookings {
		intervals = append(intervals, interval.Interval{Start: b.StartTime, End: b.EndTime})
	}
	return intervals, nil
}

func (r *mongoBookingRepository) FindTodayByClient(ctx context.Context, orgID, clientID string, dayStart, dayEnd time.Time) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"organization_id": orgID,
		"client_id":       clientID,
		"start_time":      bson.M{"$gte": dayStart, "$lt": dayEnd},
		"status":          bson.M{"$ne": model.StatusCancelled},
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query today's bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

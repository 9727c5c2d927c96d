package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	organizationserrors "bookwell/internal/organizations/errors"
	"bookwell/pkg/config"
	mongotx "bookwell/pkg/db/mongo"
	"bookwell/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Organizations"
)

type mongoOrganizationRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *model.Organization) error
	FindByID(ctx context.Context, id string) (*model.Organization, error)
	FindBySlug(ctx context.Context, slug string) (*model.Organization, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Organization, error)
	Update(ctx context.Context, id string, org *model.Organization) error
	UpdatePolicy(ctx context.Context, id string, update *model.PolicyUpdate) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoOrganizationRepository(cfg *config.Config) OrganizationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOrganizationRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless we are already
// inside a transaction, where wrapping the SessionContext would break
// transaction semantics.
func (r *mongoOrganizationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoOrganizationRepository) Create(ctx context.Context, org *model.Organization) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	org.CreatedAt = now
	org.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, org)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", organizationserrors.ErrDuplicateSlug, org.Slug)
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		org.ID = oid.Hex()
	}

	return nil
}

func (r *mongoOrganizationRepository) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", organizationserrors.ErrInvalidID, id)
	}

	var org model.Organization
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&org)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", organizationserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return &org, nil
}

func (r *mongoOrganizationRepository) FindBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var org model.Organization
	err := r.collection.FindOne(ctx, bson.M{"slug": slug}).Decode(&org)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: slug %s", organizationserrors.ErrNotFound, slug)
		}
		return nil, fmt.Errorf("failed to find organization by slug: %w", err)
	}
	return &org, nil
}

func (r *mongoOrganizationRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Organization, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer cursor.Close(ctx)

	var organizations []*model.Organization
	if err = cursor.All(ctx, &organizations); err != nil {
		return nil, fmt.Errorf("failed to decode organizations: %w", err)
	}

	return organizations, nil
}

func (r *mongoOrganizationRepository) Update(ctx context.Context, id string, org *model.Organization) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", organizationserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"name":       org.Name,
			"email":      org.Email,
			"phone":      org.Phone,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", organizationserrors.ErrNotFound, id)
	}

	return nil
}

func (r *mongoOrganizationRepository) UpdatePolicy(ctx context.Context, id string, update *model.PolicyUpdate) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", organizationserrors.ErrInvalidID, id)
	}

	set := bson.M{
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	unset := bson.M{}

	if update.ClearChangeHours {
		unset["booking_change_hours"] = ""
	} else if update.BookingChangeHours != nil {
		set["booking_change_hours"] = *update.BookingChangeHours
	}
	if update.RequireMembership != nil {
		set["require_membership"] = *update.RequireMembership
	}

	change := bson.M{"$set": set}
	if len(unset) > 0 {
		change["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, change)
	if err != nil {
		return fmt.Errorf("failed to update organization policy: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", organizationserrors.ErrNotFound, id)
	}

	return nil
}

func (r *mongoOrganizationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", organizationserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", organizationserrors.ErrNotFound, id)
	}

	return nil
}

func (r *mongoOrganizationRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}
	return count, nil
}

func (r *mongoOrganizationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
